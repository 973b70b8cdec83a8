package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-scheduler/internal/application/campaign"
)

// CampaignHandler sends operator campaigns.
type CampaignHandler struct {
	svc campaign.Service
}

func NewCampaignHandler(svc campaign.Service) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

// Send delivers a pending campaign. Once the campaign was claimed the body
// carries its final stored state, even when the send failed.
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	c, err := h.svc.Send(r.Context(), campaignID)
	if err != nil {
		slog.Warn("campaign send failed", "campaign_id", campaignID, "err", err)
		writeJSON(w, httpError(err), CampaignEnvelope{Campaign: c, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, CampaignEnvelope{Campaign: c})
}
