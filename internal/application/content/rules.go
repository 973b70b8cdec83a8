package content

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-push-scheduler/internal/domain"
)

// RuleStore reads every content rule table.
type RuleStore interface {
	ListJourneyTemplates(ctx context.Context) ([]domain.JourneyDayTemplate, error)
	ListEnabledReminders(ctx context.Context) ([]domain.CycleReminderRule, error)
	ListEnabledBroadcasts(ctx context.Context) ([]domain.ScheduledBroadcast, error)
}

type templateKey struct {
	stage domain.LifeStage
	day   int
}

// RuleSet is the content rules of one run, indexed for per-recipient lookup.
type RuleSet struct {
	templates  map[templateKey]domain.JourneyDayTemplate
	reminders  map[string][]domain.CycleReminderRule
	broadcasts []domain.ScheduledBroadcast
}

// NewRuleSet indexes templates by (stage, day), groups reminders by recipient
// in kind priority order and sorts broadcasts by descending priority.
// Reminders of an unknown kind are dropped so they cannot shadow valid rules.
func NewRuleSet(templates []domain.JourneyDayTemplate, reminders []domain.CycleReminderRule, broadcasts []domain.ScheduledBroadcast) *RuleSet {
	rs := &RuleSet{
		templates: make(map[templateKey]domain.JourneyDayTemplate, len(templates)),
		reminders: make(map[string][]domain.CycleReminderRule),
	}
	for _, t := range templates {
		rs.templates[templateKey{t.Stage, t.DayNumber}] = t
	}
	for _, r := range reminders {
		if !r.Enabled {
			continue
		}
		if r.Kind.Rank() < 0 {
			slog.Warn("skipping reminder with unknown kind", "rule_id", r.ID, "user_id", r.UserID, "kind", r.Kind)
			continue
		}
		rs.reminders[r.UserID] = append(rs.reminders[r.UserID], r)
	}
	for _, list := range rs.reminders {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.Kind.Rank() != b.Kind.Rank() {
				return a.Kind.Rank() < b.Kind.Rank()
			}
			if a.DaysBefore != b.DaysBefore {
				return a.DaysBefore < b.DaysBefore
			}
			return a.ID < b.ID
		})
	}
	for _, b := range broadcasts {
		if b.Enabled {
			rs.broadcasts = append(rs.broadcasts, b)
		}
	}
	sort.SliceStable(rs.broadcasts, func(i, j int) bool {
		a, b := rs.broadcasts[i], rs.broadcasts[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})
	return rs
}

// LoadRuleSet reads all rules once at the start of a run.
func LoadRuleSet(ctx context.Context, store RuleStore) (*RuleSet, error) {
	templates, err := store.ListJourneyTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAudienceResolution, err)
	}
	reminders, err := store.ListEnabledReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAudienceResolution, err)
	}
	broadcasts, err := store.ListEnabledBroadcasts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAudienceResolution, err)
	}
	return NewRuleSet(templates, reminders, broadcasts), nil
}
