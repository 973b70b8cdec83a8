package domain

import "time"

type DeliveryStatus string

const (
	DeliverySent             DeliveryStatus = "sent"
	DeliveryTransientFailure DeliveryStatus = "transient_failure"
	DeliveryPermanentFailure DeliveryStatus = "permanent_failure"
)

// DeliveryOutcome is the audit record of a single gateway attempt.
type DeliveryOutcome struct {
	DeliveryID  string          `json:"id" dynamodbav:"delivery_id"`
	RunID       string          `json:"run_id" dynamodbav:"run_id"`
	RecipientID string          `json:"user_id" dynamodbav:"user_id"`
	DeviceToken string          `json:"-" dynamodbav:"device_token"`
	Platform    Platform        `json:"platform" dynamodbav:"platform"`
	Status      DeliveryStatus  `json:"status" dynamodbav:"status"`
	Category    MessageCategory `json:"category" dynamodbav:"category"`
	SourceID    string          `json:"source_id,omitempty" dynamodbav:"source_id"`
	ErrorDetail string          `json:"error_detail,omitempty" dynamodbav:"error_detail"`
	CreatedAt   time.Time       `json:"created" dynamodbav:"created_at"`
}
