package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-push-scheduler/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RunEnvelope wraps a sweep run report. Error is set when the run failed.
type RunEnvelope struct {
	Report *domain.RunReport `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// CampaignEnvelope wraps the stored state of a campaign after a send.
type CampaignEnvelope struct {
	Campaign *domain.CampaignRun `json:"campaign,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}
