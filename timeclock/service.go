/*
service.go - Clock actions, status resolution, and reporting

PURPOSE:
  The caller-facing operations around clock events:
  - ResolveStatus: derive a user's current status from stored history
  - Clock:         validate and append a clock action atomically
  - Report:        aggregate worked/break hours over a date range
  - CreateManualEntry / DeleteEntry: administrative corrections

STATUS IS A QUERY:
  Current status is never cached. Every Clock call re-resolves it from
  the latest stored event inside the same transaction that appends the
  new one, so concurrent actions cannot both validate against a stale
  status.

SEE ALSO:
  - transition.go: the legality table Clock enforces
  - aggregate.go:  the algorithm Report runs
  - workflow.go:   edit-request review
*/
package timeclock

import (
	"context"
	"fmt"
	"time"
)

// ClockService handles clock actions and reporting.
type ClockService struct {
	Store     TxStore
	Directory Directory

	// Now is the clock used for new events; defaults to time.Now.
	Now func() time.Time
}

func (s *ClockService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// =============================================================================
// STATUS RESOLVER
// =============================================================================

// ResolveStatus derives the user's current status from their most
// recent event. No events means OUT. Read-only.
func (s *ClockService) ResolveStatus(ctx context.Context, userID string) (Status, error) {
	last, err := s.Store.MostRecentEvent(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve status: %w", err)
	}
	return StatusFromLast(last), nil
}

// StatusFromLast maps a most-recent event (possibly nil) to a status.
func StatusFromLast(last *TimeEvent) Status {
	if last == nil {
		return StatusOut
	}
	return last.Action.StatusAfter()
}

// =============================================================================
// CLOCK ACTION
// =============================================================================

// Clock records a clock action for the user after validating it against
// their current status. Resolution, validation, and the append happen
// in one transaction. An illegal transition leaves state unchanged and
// returns ErrInvalidTransition.
func (s *ClockService) Clock(ctx context.Context, userID string, action Action) (TimeEvent, error) {
	if !action.Valid() {
		return TimeEvent{}, &UnknownActionError{Raw: string(action)}
	}

	var created TimeEvent
	err := s.Store.WithTx(ctx, func(tx Store) error {
		last, err := tx.MostRecentEvent(ctx, userID)
		if err != nil {
			return err
		}
		status := StatusFromLast(last)
		if !CanTransition(action, status) {
			return &TransitionError{Action: action, Status: status}
		}

		created, err = tx.CreateEvent(ctx, NewTimeEvent(userID, s.now(), action))
		if err != nil {
			return err
		}

		return tx.AppendAudit(ctx, AuditEntry{
			Timestamp: s.now(),
			ActorID:   userID,
			Action:    AuditClockAction,
			TargetID:  created.ID,
			Payload:   map[string]any{"action": string(action)},
		})
	})
	if err != nil {
		return TimeEvent{}, err
	}
	return created, nil
}

// =============================================================================
// REPORTING
// =============================================================================

// Report aggregates the user's worked and break hours over the date
// range [start, end] (inclusive, by derived date). Read-only; running
// it twice over the same stored range yields identical output.
func (s *ClockService) Report(ctx context.Context, userID string, start, end time.Time) (PeriodSummary, error) {
	if end.Before(start) {
		return PeriodSummary{}, fmt.Errorf("%s to %s: %w", DateOf(start), DateOf(end), ErrInvalidPeriod)
	}

	events, err := s.Store.EventsInRange(ctx, userID, start, end)
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("load events: %w", err)
	}
	return Aggregate(events), nil
}

// WorkedToday is the dashboard figure: worked hours for the current day.
func (s *ClockService) WorkedToday(ctx context.Context, userID string) (float64, error) {
	today := s.now()
	summary, err := s.Report(ctx, userID, today, today)
	if err != nil {
		return 0, err
	}
	return summary.WorkedHours, nil
}

// =============================================================================
// ADMINISTRATIVE CORRECTIONS
// =============================================================================

// CreateManualEntry lets an administrator record an event on a user's
// behalf, e.g. a forgotten clock-out. Manual entries bypass transition
// validation; they are free-form corrections.
func (s *ClockService) CreateManualEntry(ctx context.Context, adminID, userID string, ts time.Time, action Action) (TimeEvent, error) {
	if err := requireAdmin(ctx, s.Directory, adminID); err != nil {
		return TimeEvent{}, err
	}
	if !action.Valid() {
		return TimeEvent{}, &UnknownActionError{Raw: string(action)}
	}

	var created TimeEvent
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		created, err = tx.CreateEvent(ctx, NewTimeEvent(userID, ts, action))
		if err != nil {
			return err
		}
		return tx.AppendAudit(ctx, AuditEntry{
			Timestamp: s.now(),
			ActorID:   adminID,
			Action:    AuditManualEntry,
			TargetID:  created.ID,
			Payload:   map[string]any{"user_id": userID, "action": string(action)},
		})
	})
	if err != nil {
		return TimeEvent{}, err
	}
	return created, nil
}

// DeleteEntry removes an event. Administrator-only; this is the one
// explicit deletion path the system has.
func (s *ClockService) DeleteEntry(ctx context.Context, adminID, eventID string) error {
	if err := requireAdmin(ctx, s.Directory, adminID); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx Store) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
		}
		if err := tx.DeleteEvent(ctx, eventID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, AuditEntry{
			Timestamp: s.now(),
			ActorID:   adminID,
			Action:    AuditEntryDeleted,
			TargetID:  eventID,
			Payload:   map[string]any{"user_id": ev.UserID, "action": string(ev.Action)},
		})
	})
}
