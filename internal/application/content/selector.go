// Package content picks at most one message per recipient per run.
package content

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/cycle"
)

const (
	pregnancyDays  = 280
	postpartumDays = 1460

	// A reminder fires when its configured hour is less than this far from now.
	reminderHourTolerance = 60
	minutesPerDay         = 24 * 60
)

// CycleInfoFunc computes cycle offsets. cycle.Compute in production.
type CycleInfoFunc func(lastPeriodDate time.Time, cycleLengthDays, periodLengthDays int, today time.Time) cycle.Info

type Selector struct {
	loc       *time.Location
	cycleInfo CycleInfoFunc
}

func NewSelector(loc *time.Location, cycleInfo CycleInfoFunc) *Selector {
	if loc == nil {
		loc = time.UTC
	}
	if cycleInfo == nil {
		cycleInfo = cycle.Compute
	}
	return &Selector{loc: loc, cycleInfo: cycleInfo}
}

// Select walks journey day, cycle reminder, broadcast and returns the first
// match. ok is false when nothing applies. Reminders of an unknown kind are
// skipped. An error means the chosen rule could not be turned into a message;
// the recipient is then skipped for this run.
func (s *Selector) Select(r domain.Recipient, rules *RuleSet, now time.Time) (domain.Message, bool, error) {
	rule, err := s.match(r, rules, now.In(s.loc))
	if err != nil || rule == nil {
		return domain.Message{}, false, err
	}
	msg, err := toMessage(rule)
	if err != nil {
		return domain.Message{}, false, err
	}
	return msg, true, nil
}

func (s *Selector) match(r domain.Recipient, rules *RuleSet, now time.Time) (domain.ContentRule, error) {
	if t, ok := s.journeyTemplate(r, rules, now); ok {
		return t, nil
	}
	rule, err := s.cycleReminder(r, rules, now)
	if err != nil || rule != nil {
		return rule, err
	}
	for _, b := range rules.broadcasts {
		if b.ActiveAt(now) && b.Matches(r) {
			return b, nil
		}
	}
	return nil, nil
}

func (s *Selector) journeyTemplate(r domain.Recipient, rules *RuleSet, now time.Time) (domain.JourneyDayTemplate, bool) {
	day, ok := s.JourneyDay(r, now)
	if !ok {
		return domain.JourneyDayTemplate{}, false
	}
	t, ok := rules.templates[templateKey{r.LifeStage, day}]
	return t, ok
}

// JourneyDay returns the recipient's day number in a pregnancy or postpartum
// journey, clamped to the journey's length.
func (s *Selector) JourneyDay(r domain.Recipient, now time.Time) (int, bool) {
	today := cycle.Midnight(now, s.loc)
	switch r.LifeStage {
	case domain.StagePregnancy:
		if r.ReferenceDates.DueDate == nil {
			return 0, false
		}
		conception := cycle.AddDays(cycle.Midnight(*r.ReferenceDates.DueDate, s.loc), -pregnancyDays)
		return clamp(cycle.DaysBetween(conception, today)+1, 1, pregnancyDays), true
	case domain.StagePostpartum:
		if r.ReferenceDates.ChildBirthDate == nil {
			return 0, false
		}
		birth := cycle.Midnight(*r.ReferenceDates.ChildBirthDate, s.loc)
		return clamp(cycle.DaysBetween(birth, today)+1, 1, postpartumDays), true
	}
	return 0, false
}

func (s *Selector) cycleReminder(r domain.Recipient, rules *RuleSet, now time.Time) (domain.ContentRule, error) {
	if r.LifeStage != domain.StageCycleTracking || r.ReferenceDates.LastPeriodDate == nil {
		return nil, nil
	}
	candidates := rules.reminders[r.UserID]
	if len(candidates) == 0 {
		return nil, nil
	}
	ref := r.ReferenceDates
	info := s.cycleInfo(*ref.LastPeriodDate, ref.CycleLengthDays, ref.PeriodLengthDays, now)
	for _, rule := range candidates {
		due, err := Fires(rule, info)
		if err != nil {
			slog.Warn("skipping reminder", "rule_id", rule.ID, "user_id", r.UserID, "err", err)
			continue
		}
		if due && withinHour(rule.TimeOfDayHour, now) {
			return rule, nil
		}
	}
	return nil, nil
}

// Fires evaluates a reminder's kind predicate against cycle offsets.
func Fires(rule domain.CycleReminderRule, info cycle.Info) (bool, error) {
	d := rule.DaysBefore
	switch rule.Kind {
	case domain.ReminderPeriodStart:
		return info.DaysUntilPeriod == d, nil
	case domain.ReminderPeriodEnd:
		return info.DaysUntilPeriodEnd == d, nil
	case domain.ReminderOvulation:
		return info.DaysUntilOvulation == d, nil
	case domain.ReminderFertileStart:
		return info.DaysUntilFertile == d, nil
	case domain.ReminderFertileEnd:
		return info.DaysUntilFertileEnd == d, nil
	case domain.ReminderPMS:
		return info.DaysUntilPMS == d, nil
	case domain.ReminderPill:
		return true, nil
	}
	return false, fmt.Errorf("%w: reminder %s has unknown kind %q", domain.ErrBadRequest, rule.ID, rule.Kind)
}

// withinHour reports whether hour:00 is less than an hour from now, wrapping
// around midnight.
func withinHour(hour int, now time.Time) bool {
	nowMin := now.Hour()*60 + now.Minute()
	diff := nowMin - hour*60
	if diff < 0 {
		diff = -diff
	}
	diff %= minutesPerDay
	if minutesPerDay-diff < diff {
		diff = minutesPerDay - diff
	}
	return diff < reminderHourTolerance
}

func toMessage(rule domain.ContentRule) (domain.Message, error) {
	switch r := rule.(type) {
	case domain.JourneyDayTemplate:
		return domain.Message{
			Title:    r.Title,
			Body:     r.Body,
			Category: domain.CategoryJourney,
			SourceID: fmt.Sprintf("%s:%d", r.Stage, r.DayNumber),
			Data:     map[string]string{"stage": string(r.Stage), "day_number": fmt.Sprint(r.DayNumber)},
		}, nil
	case domain.CycleReminderRule:
		return domain.Message{
			Title:    r.Title,
			Body:     r.Body,
			Category: domain.CategoryCycleReminder,
			SourceID: r.ID,
			Data:     map[string]string{"kind": string(r.Kind)},
		}, nil
	case domain.ScheduledBroadcast:
		return domain.Message{
			Title:    r.Title,
			Body:     r.Body,
			Category: domain.CategoryBroadcast,
			SourceID: r.ID,
		}, nil
	}
	return domain.Message{}, fmt.Errorf("unknown content rule %T", rule)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
