package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-push-scheduler/internal/application/sweep"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/validate"
	"github.com/go-push-scheduler/internal/transport/http/middleware"
)

// SweepRequest is the optional body of POST /v1/sweeps.
type SweepRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=scheduled manual"`
}

// SweepHandler triggers sweeps on demand.
type SweepHandler struct {
	svc sweep.Service
}

func NewSweepHandler(svc sweep.Service) *SweepHandler { return &SweepHandler{svc: svc} }

// Trigger runs one sweep synchronously and returns its report. An empty body
// means a scheduled run.
func (h *SweepHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mode := domain.ModeScheduled
	if req.Mode != "" {
		mode = domain.RunMode(req.Mode)
	}

	caller := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		caller = claims.Subject
	}
	slog.Info("sweep triggered", "mode", mode, "caller", caller)

	rep, err := h.svc.Run(r.Context(), mode)
	if err != nil {
		writeJSON(w, httpError(err), RunEnvelope{Report: &rep, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, RunEnvelope{Report: &rep})
}
