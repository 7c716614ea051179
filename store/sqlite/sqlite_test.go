package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/punchclock/store/sqlite"
	"github.com/warp/punchclock/timeclock"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreate(t *testing.T, store *sqlite.Store, userID string, ts time.Time, action timeclock.Action) timeclock.TimeEvent {
	t.Helper()
	ev, err := store.CreateEvent(context.Background(), timeclock.NewTimeEvent(userID, ts, action))
	require.NoError(t, err)
	return ev
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestCreateEvent_AssignsIDAndRoundTrips(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ts := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)
	created := mustCreate(t, store, "emp-1", ts, timeclock.ActionIn)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2026-03-09", created.Date)

	got, err := store.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Timestamp.Equal(ts))
	assert.Equal(t, timeclock.ActionIn, got.Action)
}

func TestGetEvent_MissingReturnsNil(t *testing.T) {
	store := newStore(t)

	got, err := store.GetEvent(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMostRecentEvent_OrdersByTimestamp(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)
	mustCreate(t, store, "emp-1", base.Add(time.Hour), timeclock.ActionOut)
	// Inserted later but earlier in time; must not win.
	mustCreate(t, store, "emp-1", base, timeclock.ActionIn)

	last, err := store.MostRecentEvent(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, timeclock.ActionOut, last.Action)
}

func TestMostRecentEvent_NoEvents(t *testing.T) {
	store := newStore(t)

	last, err := store.MostRecentEvent(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestEventsInRange_FiltersByDerivedDateAndUser(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	day1 := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	mustCreate(t, store, "emp-1", day1, timeclock.ActionIn)
	mustCreate(t, store, "emp-1", day2, timeclock.ActionIn)
	mustCreate(t, store, "emp-1", day3, timeclock.ActionIn)
	mustCreate(t, store, "emp-2", day2, timeclock.ActionIn)

	events, err := store.EventsInRange(ctx, "emp-1", day1, day2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2026-03-09", events[0].Date)
	assert.Equal(t, "2026-03-10", events[1].Date)
}

func TestEventsInRange_AscendingByTimestamp(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	day := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	mustCreate(t, store, "emp-1", day.Add(17*time.Hour), timeclock.ActionOut)
	mustCreate(t, store, "emp-1", day.Add(9*time.Hour), timeclock.ActionIn)

	events, err := store.EventsInRange(ctx, "emp-1", day, day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, timeclock.ActionIn, events[0].Action)
	assert.Equal(t, timeclock.ActionOut, events[1].Action)
}

func TestUpdateEventTimestamp_RecomputesDerivedDate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ev := mustCreate(t, store, "emp-1", time.Date(2026, time.March, 9, 23, 50, 0, 0, time.UTC), timeclock.ActionIn)
	newTS := time.Date(2026, time.March, 10, 0, 10, 0, 0, time.UTC)

	require.NoError(t, store.UpdateEventTimestamp(ctx, ev.ID, newTS))

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(newTS))
	assert.Equal(t, "2026-03-10", got.Date)
}

func TestUpdateEventTimestamp_Missing(t *testing.T) {
	store := newStore(t)

	err := store.UpdateEventTimestamp(context.Background(), "nope", time.Now())
	assert.ErrorIs(t, err, timeclock.ErrEventNotFound)
}

func TestDeleteEvent_CascadesToEditRequests(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ev := mustCreate(t, store, "emp-1", time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), timeclock.ActionIn)
	req, err := store.CreateRequest(ctx, timeclock.EditRequest{
		EventID:           ev.ID,
		UserID:            "emp-1",
		ProposedTimestamp: ev.Timestamp.Add(time.Hour),
		Reason:            "reason",
		Status:            timeclock.RequestPending,
		CreatedAt:         time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteEvent(ctx, ev.ID))

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestMarkReviewed_GuardedOnPending(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ev := mustCreate(t, store, "emp-1", time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), timeclock.ActionIn)
	req, err := store.CreateRequest(ctx, timeclock.EditRequest{
		EventID:           ev.ID,
		UserID:            "emp-1",
		ProposedTimestamp: ev.Timestamp,
		Reason:            "reason",
		Status:            timeclock.RequestPending,
		CreatedAt:         time.Now(),
	})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.MarkReviewed(ctx, req.ID, timeclock.RequestAccepted, "admin", now))

	// Second decision hits the guard and reports the terminal state.
	err = store.MarkReviewed(ctx, req.ID, timeclock.RequestRejected, "admin", now)
	assert.ErrorIs(t, err, timeclock.ErrRequestNotPending)

	var npe *timeclock.NotPendingError
	require.ErrorAs(t, err, &npe)
	assert.Equal(t, timeclock.RequestAccepted, npe.Status)
}

func TestMarkReviewed_Missing(t *testing.T) {
	store := newStore(t)

	err := store.MarkReviewed(context.Background(), "nope", timeclock.RequestAccepted, "admin", time.Now())
	assert.ErrorIs(t, err, timeclock.ErrRequestNotFound)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx timeclock.Store) error {
		_, err := tx.CreateEvent(ctx, timeclock.NewTimeEvent(
			"emp-1", time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), timeclock.ActionIn))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	last, err := store.MostRecentEvent(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, last, "rolled-back event must not be visible")
}

func TestWithTx_CommitsOnNil(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx timeclock.Store) error {
		_, err := tx.CreateEvent(ctx, timeclock.NewTimeEvent(
			"emp-1", time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), timeclock.ActionIn))
		return err
	})
	require.NoError(t, err)

	last, err := store.MostRecentEvent(ctx, "emp-1")
	require.NoError(t, err)
	assert.NotNil(t, last)
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestDirectory_SaveIsUpsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	u := timeclock.User{ID: "emp-1", Name: "Ada", Email: "ada@example.com", CreatedAt: time.Now()}
	require.NoError(t, store.SaveUser(ctx, u))

	u.Admin = true
	require.NoError(t, store.SaveUser(ctx, u))

	got, err := store.GetUser(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Admin)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDirectory_IsAdministrator(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, timeclock.User{ID: "admin", Name: "Root", Admin: true, CreatedAt: time.Now()}))
	require.NoError(t, store.SaveUser(ctx, timeclock.User{ID: "emp-1", Name: "Ada", CreatedAt: time.Now()}))

	admin, err := store.IsAdministrator(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = store.IsAdministrator(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, admin)

	// Unknown users are simply not administrators.
	admin, err = store.IsAdministrator(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, admin)
}

// =============================================================================
// AUDIT TESTS
// =============================================================================

func TestAudit_AppendAndFilter(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	entries := []timeclock.AuditEntry{
		{Timestamp: now, ActorID: "emp-1", Action: timeclock.AuditClockAction, TargetID: "ev-1", Payload: map[string]any{"action": "IN"}},
		{Timestamp: now.Add(time.Second), ActorID: "admin", Action: timeclock.AuditManualEntry, TargetID: "ev-2"},
		{Timestamp: now.Add(2 * time.Second), ActorID: "emp-1", Action: timeclock.AuditRequestSubmitted, TargetID: "req-1"},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendAudit(ctx, e))
	}

	byActor, err := store.QueryAudit(ctx, timeclock.AuditFilter{ActorID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byAction, err := store.QueryAudit(ctx, timeclock.AuditFilter{
		Actions: []timeclock.AuditAction{timeclock.AuditManualEntry},
	})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "admin", byAction[0].ActorID)

	limited, err := store.QueryAudit(ctx, timeclock.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	// Newest first.
	assert.Equal(t, "req-1", limited[0].TargetID)

	// Payload round-trips through JSON.
	clock, err := store.QueryAudit(ctx, timeclock.AuditFilter{
		Actions: []timeclock.AuditAction{timeclock.AuditClockAction},
	})
	require.NoError(t, err)
	require.Len(t, clock, 1)
	assert.Equal(t, "IN", clock[0].Payload["action"])
}
