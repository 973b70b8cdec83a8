// Package cycle converts a last-period date and interval lengths into
// cycle-relative day offsets. Everything here is pure calendar arithmetic.
package cycle

import (
	"math"
	"time"
)

const (
	DefaultCycleLengthDays  = 28
	DefaultPeriodLengthDays = 5

	lutealPhaseDays  = 14
	fertileLeadDays  = 5
	fertileTrailDays = 1
	pmsLeadDays      = 7
)

// Info is the cycle state of one recipient on one day. Every DaysUntil field
// counts the whole days left before the event starts, so an event tomorrow
// is 0 days away and one already past is negative.
type Info struct {
	DaysSincePeriod     int
	CurrentCycleDay     int
	NextPeriodDate      time.Time
	DaysUntilPeriod     int
	DaysUntilPeriodEnd  int
	OvulationDate       time.Time
	DaysUntilOvulation  int
	FertileStart        time.Time
	DaysUntilFertile    int
	FertileEnd          time.Time
	DaysUntilFertileEnd int
	DaysUntilPMS        int
	IsPeriodDay         bool
}

// Compute derives Info for today. Both dates are truncated to midnight in
// today's location, so callers must pass today in the service zone.
// Non-positive lengths fall back to the defaults. A lastPeriodDate after today
// is a caller error and yields negative offsets.
func Compute(lastPeriodDate time.Time, cycleLengthDays, periodLengthDays int, today time.Time) Info {
	if cycleLengthDays <= 0 {
		cycleLengthDays = DefaultCycleLengthDays
	}
	if periodLengthDays <= 0 {
		periodLengthDays = DefaultPeriodLengthDays
	}
	loc := today.Location()
	day := Midnight(today, loc)
	last := Midnight(lastPeriodDate, loc)

	since := DaysBetween(last, day)
	cyclesPassed := floorDiv(since, cycleLengthDays)
	cycleDay := since - cyclesPassed*cycleLengthDays + 1

	next := AddDays(last, (cyclesPassed+1)*cycleLengthDays)
	ovulation := AddDays(next, -lutealPhaseDays)
	fertileStart := AddDays(ovulation, -fertileLeadDays)
	fertileEnd := AddDays(ovulation, fertileTrailDays)
	periodEnd := AddDays(day, periodLengthDays-cycleDay+1)
	untilPeriod := daysLeft(day, next)

	return Info{
		DaysSincePeriod:     since,
		CurrentCycleDay:     cycleDay,
		NextPeriodDate:      next,
		DaysUntilPeriod:     untilPeriod,
		DaysUntilPeriodEnd:  daysLeft(day, periodEnd),
		OvulationDate:       ovulation,
		DaysUntilOvulation:  daysLeft(day, ovulation),
		FertileStart:        fertileStart,
		DaysUntilFertile:    daysLeft(day, fertileStart),
		FertileEnd:          fertileEnd,
		DaysUntilFertileEnd: daysLeft(day, fertileEnd),
		DaysUntilPMS:        untilPeriod - pmsLeadDays,
		IsPeriodDay:         cycleDay <= periodLengthDays,
	}
}

// Midnight returns the start of t's calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays moves a midnight by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween counts calendar days from a to b (b − a). Both should be
// midnights in the same zone; rounding absorbs DST hours in non-fixed zones.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// daysLeft is the number of whole days between today and event, exclusive
// of both.
func daysLeft(today, event time.Time) int {
	return DaysBetween(today, event) - 1
}

// floorDiv keeps cycle days in range for the (unguarded) negative case.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
