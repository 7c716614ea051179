package timeclock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/punchclock/timeclock"
)

// =============================================================================
// TRANSITION TABLE TESTS
// =============================================================================

func TestCanTransition_Exhaustive(t *testing.T) {
	// Every status x action pair. Only five transitions are legal; the
	// table is a whitelist, so everything else must be refused.
	tests := []struct {
		status timeclock.Status
		action timeclock.Action
		want   bool
	}{
		// From OUT: only clocking in.
		{timeclock.StatusOut, timeclock.ActionIn, true},
		{timeclock.StatusOut, timeclock.ActionOut, false},
		{timeclock.StatusOut, timeclock.ActionBreakStart, false},
		{timeclock.StatusOut, timeclock.ActionBreakEnd, false},

		// From IN: clock out or start a break.
		{timeclock.StatusIn, timeclock.ActionIn, false},
		{timeclock.StatusIn, timeclock.ActionOut, true},
		{timeclock.StatusIn, timeclock.ActionBreakStart, true},
		{timeclock.StatusIn, timeclock.ActionBreakEnd, false},

		// From BREAK_START: end the break or clock out through it.
		{timeclock.StatusBreakStart, timeclock.ActionIn, false},
		{timeclock.StatusBreakStart, timeclock.ActionOut, true},
		{timeclock.StatusBreakStart, timeclock.ActionBreakStart, false},
		{timeclock.StatusBreakStart, timeclock.ActionBreakEnd, true},
	}

	for _, tt := range tests {
		got := timeclock.CanTransition(tt.action, tt.status)
		assert.Equal(t, tt.want, got, "%s while %s", tt.action, tt.status)
	}
}

func TestCanTransition_UnknownInputsRefused(t *testing.T) {
	// Unknown statuses and actions fall outside the whitelist.
	assert.False(t, timeclock.CanTransition(timeclock.Action("LUNCH"), timeclock.StatusIn))
	assert.False(t, timeclock.CanTransition(timeclock.ActionIn, timeclock.Status("NAPPING")))
	assert.False(t, timeclock.CanTransition(timeclock.Action(""), timeclock.Status("")))
}

// =============================================================================
// STATUS DERIVATION TESTS
// =============================================================================

func TestStatusAfter_BreakEndFoldsToIn(t *testing.T) {
	// BREAK_END is never a status of its own: a finished break means the
	// user is working again.
	assert.Equal(t, timeclock.StatusIn, timeclock.ActionBreakEnd.StatusAfter())
	assert.Equal(t, timeclock.StatusIn, timeclock.ActionIn.StatusAfter())
	assert.Equal(t, timeclock.StatusBreakStart, timeclock.ActionBreakStart.StatusAfter())
	assert.Equal(t, timeclock.StatusOut, timeclock.ActionOut.StatusAfter())
}

func TestStatusFromLast_NoHistoryMeansOut(t *testing.T) {
	assert.Equal(t, timeclock.StatusOut, timeclock.StatusFromLast(nil))
}

func TestParseAction(t *testing.T) {
	a, err := timeclock.ParseAction("BREAK_START")
	assert.NoError(t, err)
	assert.Equal(t, timeclock.ActionBreakStart, a)

	_, err = timeclock.ParseAction("break_start")
	assert.ErrorIs(t, err, timeclock.ErrUnknownAction)

	_, err = timeclock.ParseAction("")
	assert.ErrorIs(t, err, timeclock.ErrUnknownAction)
}
