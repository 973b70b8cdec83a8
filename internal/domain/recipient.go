package domain

import "time"

type LifeStage string

const (
	StageCycleTracking LifeStage = "cycle_tracking"
	StagePregnancy     LifeStage = "pregnancy"
	StagePostpartum    LifeStage = "postpartum"
)

// ReferenceDates holds the biological reference points a recipient's content
// is computed from. Any of them may be missing.
type ReferenceDates struct {
	LastPeriodDate   *time.Time `json:"last_period_date,omitempty" dynamodbav:"last_period_date"`
	CycleLengthDays  int        `json:"cycle_length_days" dynamodbav:"cycle_length_days"`
	PeriodLengthDays int        `json:"period_length_days" dynamodbav:"period_length_days"`
	DueDate          *time.Time `json:"due_date,omitempty" dynamodbav:"due_date"`
	ChildBirthDate   *time.Time `json:"child_birth_date,omitempty" dynamodbav:"child_birth_date"`
}

// Recipient is an end user as seen by the delivery engine. The engine only
// ever writes LastSentAt (after a successful send) and prunes DeviceTokens.
type Recipient struct {
	UserID               string         `json:"id" dynamodbav:"user_id"`
	Role                 string         `json:"role" dynamodbav:"role"`
	LifeStage            LifeStage      `json:"life_stage" dynamodbav:"life_stage"`
	ReferenceDates       ReferenceDates `json:"reference_dates" dynamodbav:"reference_dates"`
	NotificationsEnabled bool           `json:"notifications_enabled" dynamodbav:"notifications_enabled"`
	LastSentAt           *time.Time     `json:"last_sent_at,omitempty" dynamodbav:"last_sent_at"`
	DeviceTokens         []DeviceToken  `json:"device_tokens,omitempty" dynamodbav:"-"`
}

// CoolingDown reports whether the recipient was reached less than minCooldown ago.
func (r Recipient) CoolingDown(now time.Time, minCooldown time.Duration) bool {
	return r.LastSentAt != nil && now.Sub(*r.LastSentAt) < minCooldown
}
