package domain

import "time"

// ContentRule is the closed set of message sources the selector evaluates.
// Only the variants declared in this file implement it.
type ContentRule interface {
	contentRule()
}

// JourneyDayTemplate is a canned message for an exact day of a pregnancy or
// postpartum journey.
type JourneyDayTemplate struct {
	Stage     LifeStage `json:"stage" dynamodbav:"stage"`
	DayNumber int       `json:"day_number" dynamodbav:"day_number"`
	Title     string    `json:"title" dynamodbav:"title"`
	Body      string    `json:"body" dynamodbav:"body"`
}

type ReminderKind string

const (
	ReminderPeriodStart  ReminderKind = "period_start"
	ReminderPeriodEnd    ReminderKind = "period_end"
	ReminderOvulation    ReminderKind = "ovulation"
	ReminderFertileStart ReminderKind = "fertile_start"
	ReminderFertileEnd   ReminderKind = "fertile_end"
	ReminderPMS          ReminderKind = "pms"
	ReminderPill         ReminderKind = "pill"
)

// ReminderKinds lists every kind in evaluation priority order.
var ReminderKinds = []ReminderKind{
	ReminderPeriodStart,
	ReminderPeriodEnd,
	ReminderOvulation,
	ReminderFertileStart,
	ReminderFertileEnd,
	ReminderPMS,
	ReminderPill,
}

// Rank returns the kind's position in ReminderKinds, or -1 for unknown kinds.
func (k ReminderKind) Rank() int {
	for i, kk := range ReminderKinds {
		if kk == k {
			return i
		}
	}
	return -1
}

// CycleReminderRule is a per-recipient reminder relative to the menstrual cycle.
type CycleReminderRule struct {
	ID            string       `json:"id" dynamodbav:"rule_id"`
	UserID        string       `json:"user_id" dynamodbav:"user_id"`
	Kind          ReminderKind `json:"kind" dynamodbav:"kind"`
	DaysBefore    int          `json:"days_before" dynamodbav:"days_before"`
	TimeOfDayHour int          `json:"time_of_day_hour" dynamodbav:"time_of_day_hour"`
	Title         string       `json:"title" dynamodbav:"title"`
	Body          string       `json:"body" dynamodbav:"body"`
	Enabled       bool         `json:"enabled" dynamodbav:"enabled"`
}

// AudienceAll matches every recipient in broadcast filters and campaign segments.
const AudienceAll = "all"

// ScheduledBroadcast is a generic message for every recipient matching its filter.
type ScheduledBroadcast struct {
	ID             string     `json:"id" dynamodbav:"broadcast_id"`
	AudienceFilter string     `json:"audience_filter" dynamodbav:"audience_filter"`
	Title          string     `json:"title" dynamodbav:"title"`
	Body           string     `json:"body" dynamodbav:"body"`
	Priority       int        `json:"priority" dynamodbav:"priority"`
	Enabled        bool       `json:"enabled" dynamodbav:"enabled"`
	StartsAt       *time.Time `json:"starts_at,omitempty" dynamodbav:"starts_at"`
	EndsAt         *time.Time `json:"ends_at,omitempty" dynamodbav:"ends_at"`
}

// ActiveAt reports whether the broadcast is enabled and inside its window.
func (b ScheduledBroadcast) ActiveAt(now time.Time) bool {
	if !b.Enabled {
		return false
	}
	if b.StartsAt != nil && now.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && !now.Before(*b.EndsAt) {
		return false
	}
	return true
}

// Matches reports whether the broadcast's audience filter covers r.
func (b ScheduledBroadcast) Matches(r Recipient) bool {
	return MatchesAudience(b.AudienceFilter, r)
}

// MatchesAudience reports whether a named audience ("all", a life stage or a
// role) covers r. An empty audience matches nobody.
func MatchesAudience(audience string, r Recipient) bool {
	switch audience {
	case "":
		return false
	case AudienceAll:
		return true
	}
	return audience == string(r.LifeStage) || (r.Role != "" && audience == r.Role)
}

func (JourneyDayTemplate) contentRule() {}
func (CycleReminderRule) contentRule()  {}
func (ScheduledBroadcast) contentRule() {}

// MessageCategory tags a message with the content source that produced it.
type MessageCategory string

const (
	CategoryJourney       MessageCategory = "journey"
	CategoryCycleReminder MessageCategory = "cycle_reminder"
	CategoryBroadcast     MessageCategory = "broadcast"
	CategoryCampaign      MessageCategory = "campaign"
)

// Message is the single piece of content selected for one recipient in one run.
type Message struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Category MessageCategory   `json:"category"`
	SourceID string            `json:"source_id,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}
