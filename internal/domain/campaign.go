package domain

import "time"

type CampaignStatus string

const (
	CampaignPending CampaignStatus = "pending"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
	CampaignFailed  CampaignStatus = "failed"
)

// CampaignRun is an operator broadcast to a named segment.
// Status only moves pending -> sending -> sent|failed.
type CampaignRun struct {
	CampaignID     string         `json:"id" dynamodbav:"campaign_id"`
	Title          string         `json:"title" dynamodbav:"title"`
	Body           string         `json:"body" dynamodbav:"body"`
	TargetAudience string         `json:"target_audience" dynamodbav:"target_audience"`
	Status         CampaignStatus `json:"status" dynamodbav:"status"`
	TotalSent      int64          `json:"total_sent" dynamodbav:"total_sent"`
	TotalFailed    int64          `json:"total_failed" dynamodbav:"total_failed"`
	FailureReason  string         `json:"failure_reason,omitempty" dynamodbav:"failure_reason"`
	SentAt         *time.Time     `json:"sent_at,omitempty" dynamodbav:"sent_at"`
	CreatedAt      time.Time      `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time      `json:"updated" dynamodbav:"updated_at"`
}

// Terminal reports whether the run has been finalized.
func (c CampaignRun) Terminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}
