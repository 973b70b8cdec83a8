package domain

import "time"

type RunKind string

const (
	RunSweep    RunKind = "sweep"
	RunCampaign RunKind = "campaign"
)

type RunMode string

const (
	ModeScheduled RunMode = "scheduled"
	ModeManual    RunMode = "manual"
)

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunSkipped   RunStatus = "skipped"
	RunFailed    RunStatus = "failed"
)

// RunReport summarises one sweep or campaign run for operators.
type RunReport struct {
	RunID       string    `json:"run_id"`
	Kind        RunKind   `json:"kind"`
	Mode        RunMode   `json:"mode,omitempty"`
	CampaignID  string    `json:"campaign_id,omitempty"`
	Status      RunStatus `json:"status"`
	Eligible    int       `json:"eligible"`
	Selected    int       `json:"selected"`
	TotalSent   int64     `json:"total_sent"`
	TotalFailed int64     `json:"total_failed"`
	NoTokens    int64     `json:"no_tokens"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
