package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/cycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("service", 7*3600)

// 08:30 local, so a 09:00 reminder is inside the hour gate.
var now = time.Date(2025, 3, 10, 8, 30, 0, 0, loc)

func daysFromNow(n int) *time.Time {
	t := cycle.AddDays(cycle.Midnight(now, loc), n)
	return &t
}

func cycleRecipient(id string) domain.Recipient {
	return domain.Recipient{
		UserID:    id,
		LifeStage: domain.StageCycleTracking,
		ReferenceDates: domain.ReferenceDates{
			LastPeriodDate:   daysFromNow(-26),
			CycleLengthDays:  28,
			PeriodLengthDays: 5,
		},
		NotificationsEnabled: true,
	}
}

func reminder(id, user string, kind domain.ReminderKind, daysBefore, hour int) domain.CycleReminderRule {
	return domain.CycleReminderRule{
		ID: id, UserID: user, Kind: kind, DaysBefore: daysBefore, TimeOfDayHour: hour,
		Title: string(kind), Body: "b", Enabled: true,
	}
}

func TestSelect_PeriodStartScenario(t *testing.T) {
	r := cycleRecipient("u1")
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("r1", "u1", domain.ReminderPeriodStart, 1, 9),
	}, nil)

	msg, ok, err := NewSelector(loc, nil).Select(r, rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryCycleReminder, msg.Category)
	assert.Equal(t, "r1", msg.SourceID)
	assert.Equal(t, "period_start", msg.Data["kind"])
}

func TestSelect_JourneyBeatsReminder(t *testing.T) {
	r := cycleRecipient("u1")
	r.LifeStage = domain.StagePregnancy
	r.ReferenceDates.DueDate = daysFromNow(181) // day 100
	rules := NewRuleSet(
		[]domain.JourneyDayTemplate{{Stage: domain.StagePregnancy, DayNumber: 100, Title: "Day 100", Body: "b"}},
		[]domain.CycleReminderRule{reminder("pill", "u1", domain.ReminderPill, 0, 9)},
		[]domain.ScheduledBroadcast{{ID: "b1", AudienceFilter: domain.AudienceAll, Title: "x", Enabled: true}},
	)

	msg, ok, err := NewSelector(loc, nil).Select(r, rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryJourney, msg.Category)
	assert.Equal(t, "Day 100", msg.Title)
	assert.Equal(t, "pregnancy:100", msg.SourceID)
}

func TestSelect_ReminderBeatsBroadcast(t *testing.T) {
	rules := NewRuleSet(nil,
		[]domain.CycleReminderRule{reminder("pill", "u1", domain.ReminderPill, 0, 9)},
		[]domain.ScheduledBroadcast{{ID: "b1", AudienceFilter: domain.AudienceAll, Priority: 99, Enabled: true}},
	)

	msg, ok, err := NewSelector(loc, nil).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pill", msg.SourceID)
}

func TestSelect_ReminderKindPriority(t *testing.T) {
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("z-pill", "u1", domain.ReminderPill, 0, 9),
		reminder("a-start", "u1", domain.ReminderPeriodStart, 1, 9),
	}, nil)

	msg, ok, err := NewSelector(loc, nil).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a-start", msg.SourceID)
}

func TestSelect_ReminderOutsideHourGate(t *testing.T) {
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("r1", "u1", domain.ReminderPeriodStart, 1, 12),
	}, nil)

	_, ok, err := NewSelector(loc, nil).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelect_OtherRecipientsRulesIgnored(t *testing.T) {
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("r1", "someone-else", domain.ReminderPill, 0, 9),
	}, nil)

	_, ok, err := NewSelector(loc, nil).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelect_Idempotent(t *testing.T) {
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("r1", "u1", domain.ReminderPeriodStart, 1, 9),
	}, nil)
	sel := NewSelector(loc, nil)
	r := cycleRecipient("u1")

	first, ok1, err1 := sel.Select(r, rules, now)
	second, ok2, err2 := sel.Select(r, rules, now)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestSelect_UsesInjectedCycleInfo(t *testing.T) {
	var calls int
	stub := func(time.Time, int, int, time.Time) cycle.Info {
		calls++
		return cycle.Info{DaysUntilOvulation: 3, DaysUntilPeriod: 40}
	}
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("start", "u1", domain.ReminderPeriodStart, 1, 9),
		reminder("ovu", "u1", domain.ReminderOvulation, 3, 9),
	}, nil)

	msg, ok, err := NewSelector(loc, stub).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ovu", msg.SourceID)
	assert.Equal(t, 1, calls)
}

func TestSelect_UnknownKindDoesNotShadowValidRule(t *testing.T) {
	rules := NewRuleSet(nil, []domain.CycleReminderRule{
		reminder("bad", "u1", domain.ReminderKind("period-start"), 1, 9),
		reminder("good", "u1", domain.ReminderPeriodStart, 1, 9),
	}, nil)

	msg, ok, err := NewSelector(loc, nil).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "good", msg.SourceID)
}

func TestSelect_UnknownKindFallsThroughToBroadcast(t *testing.T) {
	rules := NewRuleSet(nil,
		[]domain.CycleReminderRule{reminder("r1", "u1", domain.ReminderKind("full_moon"), 0, 9)},
		[]domain.ScheduledBroadcast{{ID: "b1", AudienceFilter: domain.AudienceAll, Title: "news", Enabled: true}},
	)

	msg, ok, err := NewSelector(loc, nil).Select(cycleRecipient("u1"), rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryBroadcast, msg.Category)
	assert.Equal(t, "b1", msg.SourceID)
}

func TestFires_UnknownKindErrors(t *testing.T) {
	_, err := Fires(reminder("r1", "u1", domain.ReminderKind("full_moon"), 0, 9), cycle.Info{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestSelect_BroadcastPriorityFilterAndWindow(t *testing.T) {
	ended := now.Add(-time.Hour)
	r := domain.Recipient{UserID: "u1", LifeStage: domain.StagePostpartum, NotificationsEnabled: true}
	rules := NewRuleSet(nil, nil, []domain.ScheduledBroadcast{
		{ID: "low", AudienceFilter: domain.AudienceAll, Priority: 1, Enabled: true},
		{ID: "expired", AudienceFilter: domain.AudienceAll, Priority: 50, Enabled: true, EndsAt: &ended},
		{ID: "other-stage", AudienceFilter: string(domain.StagePregnancy), Priority: 40, Enabled: true},
		{ID: "disabled", AudienceFilter: domain.AudienceAll, Priority: 30, Enabled: false},
		{ID: "b-mine", AudienceFilter: string(domain.StagePostpartum), Priority: 20, Enabled: true},
		{ID: "a-mine", AudienceFilter: string(domain.StagePostpartum), Priority: 20, Enabled: true},
	})

	msg, ok, err := NewSelector(loc, nil).Select(r, rules, now)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryBroadcast, msg.Category)
	assert.Equal(t, "a-mine", msg.SourceID)
}

func TestSelect_NothingMatches(t *testing.T) {
	r := domain.Recipient{UserID: "u1", LifeStage: domain.StagePregnancy}

	_, ok, err := NewSelector(loc, nil).Select(r, NewRuleSet(nil, nil, nil), now)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJourneyDay_Clamped(t *testing.T) {
	sel := NewSelector(loc, nil)
	tests := []struct {
		name string
		r    domain.Recipient
		want int
	}{
		{"due today", domain.Recipient{LifeStage: domain.StagePregnancy, ReferenceDates: domain.ReferenceDates{DueDate: daysFromNow(0)}}, 280},
		{"overdue", domain.Recipient{LifeStage: domain.StagePregnancy, ReferenceDates: domain.ReferenceDates{DueDate: daysFromNow(-10)}}, 280},
		{"very early", domain.Recipient{LifeStage: domain.StagePregnancy, ReferenceDates: domain.ReferenceDates{DueDate: daysFromNow(300)}}, 1},
		{"birth today", domain.Recipient{LifeStage: domain.StagePostpartum, ReferenceDates: domain.ReferenceDates{ChildBirthDate: daysFromNow(0)}}, 1},
		{"week old", domain.Recipient{LifeStage: domain.StagePostpartum, ReferenceDates: domain.ReferenceDates{ChildBirthDate: daysFromNow(-7)}}, 8},
		{"toddler", domain.Recipient{LifeStage: domain.StagePostpartum, ReferenceDates: domain.ReferenceDates{ChildBirthDate: daysFromNow(-2000)}}, 1460},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := sel.JourneyDay(tc.r, now)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := sel.JourneyDay(domain.Recipient{LifeStage: domain.StagePregnancy}, now)
	assert.False(t, ok)
}

func TestWithinHour(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, loc) }
	tests := []struct {
		hour int
		now  time.Time
		want bool
	}{
		{9, at(8, 30), true},
		{9, at(9, 59), true},
		{9, at(10, 0), false},
		{9, at(8, 0), false},
		{0, at(23, 30), true},
		{23, at(23, 45), true},
		{23, at(0, 15), false},
		{12, at(0, 0), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, withinHour(tc.hour, tc.now), "hour %d at %s", tc.hour, tc.now.Format("15:04"))
	}
}

func TestFires_PredicatesMatchExactly(t *testing.T) {
	info := cycle.Compute(*daysFromNow(-26), 28, 5, now)
	fires := func(kind domain.ReminderKind, d int) bool {
		ok, err := Fires(reminder("r", "u", kind, d, 9), info)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, fires(domain.ReminderPeriodStart, info.DaysUntilPeriod))
	assert.False(t, fires(domain.ReminderPeriodStart, info.DaysUntilPeriod+1))
	assert.True(t, fires(domain.ReminderOvulation, info.DaysUntilOvulation))
	assert.True(t, fires(domain.ReminderFertileStart, info.DaysUntilFertile))
	assert.True(t, fires(domain.ReminderFertileEnd, info.DaysUntilFertileEnd))
	assert.True(t, fires(domain.ReminderPeriodEnd, info.DaysUntilPeriodEnd))
	assert.True(t, fires(domain.ReminderPMS, info.DaysUntilPMS))
	assert.True(t, fires(domain.ReminderPill, 42))
}

// --- rule loading ---

type mockRuleStore struct{ mock.Mock }

func (m *mockRuleStore) ListJourneyTemplates(ctx context.Context) ([]domain.JourneyDayTemplate, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]domain.JourneyDayTemplate)
	return v, args.Error(1)
}
func (m *mockRuleStore) ListEnabledReminders(ctx context.Context) ([]domain.CycleReminderRule, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]domain.CycleReminderRule)
	return v, args.Error(1)
}
func (m *mockRuleStore) ListEnabledBroadcasts(ctx context.Context) ([]domain.ScheduledBroadcast, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]domain.ScheduledBroadcast)
	return v, args.Error(1)
}

func TestLoadRuleSet(t *testing.T) {
	store := new(mockRuleStore)
	store.On("ListJourneyTemplates", mock.Anything).Return([]domain.JourneyDayTemplate{{Stage: domain.StagePostpartum, DayNumber: 3}}, nil)
	store.On("ListEnabledReminders", mock.Anything).Return([]domain.CycleReminderRule{reminder("r", "u1", domain.ReminderPill, 0, 9)}, nil)
	store.On("ListEnabledBroadcasts", mock.Anything).Return([]domain.ScheduledBroadcast(nil), nil)

	rs, err := LoadRuleSet(context.Background(), store)

	require.NoError(t, err)
	assert.Len(t, rs.templates, 1)
	assert.Len(t, rs.reminders["u1"], 1)
}

func TestLoadRuleSet_DirectoryFailure(t *testing.T) {
	store := new(mockRuleStore)
	store.On("ListJourneyTemplates", mock.Anything).Return(nil, errors.New("timeout"))

	_, err := LoadRuleSet(context.Background(), store)

	assert.ErrorIs(t, err, domain.ErrAudienceResolution)
	store.AssertNotCalled(t, "ListEnabledReminders", mock.Anything)
}
