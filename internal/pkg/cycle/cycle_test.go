package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("service", 7*3600)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestCompute_OneDayLeftBeforePeriod(t *testing.T) {
	today := time.Date(2025, time.March, 27, 10, 30, 0, 0, loc)
	info := Compute(AddDays(day(2025, time.March, 27), -26), 28, 5, today)

	assert.Equal(t, 26, info.DaysSincePeriod)
	assert.Equal(t, 27, info.CurrentCycleDay)
	assert.Equal(t, 1, info.DaysUntilPeriod)
	assert.Equal(t, day(2025, time.March, 29), info.NextPeriodDate)
	assert.Equal(t, day(2025, time.March, 15), info.OvulationDate)
	assert.Equal(t, -13, info.DaysUntilOvulation)
	assert.Equal(t, -18, info.DaysUntilFertile)
	assert.Equal(t, -6, info.DaysUntilPMS)
	assert.False(t, info.IsPeriodDay)
}

func TestCompute_FirstDayOfPeriod(t *testing.T) {
	today := day(2025, time.January, 1)
	info := Compute(today, 30, 4, today)

	assert.Equal(t, 1, info.CurrentCycleDay)
	assert.True(t, info.IsPeriodDay)
	assert.Equal(t, 29, info.DaysUntilPeriod)
	assert.Equal(t, 3, info.DaysUntilPeriodEnd)
	assert.Equal(t, 15, info.DaysUntilOvulation)
	assert.Equal(t, 10, info.DaysUntilFertile)
	assert.Equal(t, 16, info.DaysUntilFertileEnd)
	assert.Equal(t, 22, info.DaysUntilPMS)
}

func TestCompute_WrapsIntoLaterCycles(t *testing.T) {
	last := day(2025, time.January, 1)
	today := AddDays(last, 28*3+2)
	info := Compute(last, 28, 5, today)

	assert.Equal(t, 3, info.CurrentCycleDay)
	assert.Equal(t, AddDays(last, 28*4), info.NextPeriodDate)
	assert.Equal(t, 25, info.DaysUntilPeriod)
	assert.True(t, info.IsPeriodDay)
}

func TestCompute_DefaultsForMissingLengths(t *testing.T) {
	today := day(2025, time.June, 10)
	info := Compute(AddDays(today, -5), 0, 0, today)

	assert.Equal(t, 6, info.CurrentCycleDay)
	assert.Equal(t, 22, info.DaysUntilPeriod)
	assert.False(t, info.IsPeriodDay)
}

func TestCompute_NormalizesLastPeriodToServiceZone(t *testing.T) {
	// 2025-03-01 20:00 UTC is already 2025-03-02 in UTC+7.
	last := time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)
	today := day(2025, time.March, 3)
	info := Compute(last, 28, 5, today)

	assert.Equal(t, 1, info.DaysSincePeriod)
	assert.Equal(t, 2, info.CurrentCycleDay)
}

func TestCompute_CycleDayAlwaysInRange(t *testing.T) {
	start := day(2024, time.January, 1)
	for _, cycleLen := range []int{21, 24, 28, 30, 35, 45} {
		for _, periodLen := range []int{2, 5, 7, 10} {
			for offset := 0; offset < 400; offset += 3 {
				today := AddDays(start, offset)
				info := Compute(start, cycleLen, periodLen, today)
				require.GreaterOrEqual(t, info.CurrentCycleDay, 1)
				require.LessOrEqual(t, info.CurrentCycleDay, cycleLen)
				require.Equal(t, info.CurrentCycleDay <= periodLen, info.IsPeriodDay)
				require.Equal(t, cycleLen-info.CurrentCycleDay, info.DaysUntilPeriod)
				require.Equal(t, info.DaysUntilPeriod-7, info.DaysUntilPMS)
			}
		}
	}
}

func TestDaysBetween_AcrossMonthAndYear(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(day(2024, time.December, 31), day(2025, time.January, 1)))
	assert.Equal(t, 29, DaysBetween(day(2024, time.February, 1), day(2024, time.March, 1)))
	assert.Equal(t, -3, DaysBetween(day(2025, time.May, 4), day(2025, time.May, 1)))
}
