/*
workflow.go - Edit-request review workflow

PURPOSE:
  Manages proposed corrections to historical entries through a
  PENDING -> ACCEPTED | REJECTED lifecycle under an administrative
  review gate.

THE CRITICAL TRANSACTIONAL OPERATION:
  Accepting a request copies the proposed timestamp onto the target
  event AND marks the request accepted. Both writes happen in one
  transaction: a partially applied decision (event updated but request
  still pending, or the reverse) is a data-integrity failure, so any
  error rolls the whole decision back.

CONCURRENT REVIEWERS:
  Process re-reads the request inside the transaction, and MarkReviewed
  is guarded on the status still being PENDING. Two administrators
  deciding the same request concurrently therefore apply it exactly
  once; the loser gets ErrRequestNotPending with the terminal state.

SEE ALSO:
  - store.go: MarkReviewed contract
  - service.go: the event paths the workflow amends
*/
package timeclock

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ReviewService manages the edit-request lifecycle.
type ReviewService struct {
	Store     TxStore
	Directory Directory

	// Now is the clock used for review timestamps; defaults to time.Now.
	Now func() time.Time
}

func (rs *ReviewService) now() time.Time {
	if rs.Now != nil {
		return rs.Now()
	}
	return time.Now()
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit creates a PENDING edit request for one of the user's own
// events. The proposed timestamp is accepted as a free-form correction;
// only existence, ownership, and a non-empty reason are enforced.
func (rs *ReviewService) Submit(ctx context.Context, userID, eventID string, proposed time.Time, reason string) (EditRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return EditRequest{}, ErrReasonRequired
	}

	var created EditRequest
	err := rs.Store.WithTx(ctx, func(tx Store) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
		}
		if ev.UserID != userID {
			return fmt.Errorf("event %s belongs to another user: %w", eventID, ErrPermissionDenied)
		}

		created, err = tx.CreateRequest(ctx, EditRequest{
			EventID:           eventID,
			UserID:            userID,
			ProposedTimestamp: proposed,
			Reason:            reason,
			Status:            RequestPending,
			CreatedAt:         rs.now(),
		})
		if err != nil {
			return err
		}

		return tx.AppendAudit(ctx, AuditEntry{
			Timestamp: rs.now(),
			ActorID:   userID,
			Action:    AuditRequestSubmitted,
			TargetID:  created.ID,
			Payload:   map[string]any{"event_id": eventID},
		})
	})
	if err != nil {
		return EditRequest{}, err
	}
	return created, nil
}

// =============================================================================
// LIST PENDING
// =============================================================================

// ListPending returns all pending requests ordered by proposed
// timestamp ascending. Administrator-only.
func (rs *ReviewService) ListPending(ctx context.Context, reviewerID string) ([]EditRequest, error) {
	if err := requireAdmin(ctx, rs.Directory, reviewerID); err != nil {
		return nil, err
	}
	return rs.Store.PendingRequests(ctx)
}

// =============================================================================
// PROCESS - Accept or reject, exactly once
// =============================================================================

// Process applies an administrator's decision to a pending request and
// returns the request's resulting status.
//
// Accept updates the target event's timestamp and the request's status
// together or not at all. Reject records the decision and leaves the
// event untouched. A request that is already terminal is refused with
// ErrRequestNotPending; the returned status is the existing one.
func (rs *ReviewService) Process(ctx context.Context, requestID string, decision ReviewDecision, reviewerID string) (RequestStatus, error) {
	if err := requireAdmin(ctx, rs.Directory, reviewerID); err != nil {
		return "", err
	}

	var final RequestStatus
	err := rs.Store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("request %s: %w", requestID, ErrRequestNotFound)
		}
		if req.Status != RequestPending {
			final = req.Status
			return &NotPendingError{RequestID: requestID, Status: req.Status}
		}

		reviewedAt := rs.now()
		switch decision {
		case DecisionAccept:
			if err := tx.UpdateEventTimestamp(ctx, req.EventID, req.ProposedTimestamp); err != nil {
				return err
			}
			if err := tx.MarkReviewed(ctx, requestID, RequestAccepted, reviewerID, reviewedAt); err != nil {
				return err
			}
			final = RequestAccepted
			return tx.AppendAudit(ctx, AuditEntry{
				Timestamp: reviewedAt,
				ActorID:   reviewerID,
				Action:    AuditRequestAccepted,
				TargetID:  requestID,
				Payload:   map[string]any{"event_id": req.EventID},
			})

		case DecisionReject:
			if err := tx.MarkReviewed(ctx, requestID, RequestRejected, reviewerID, reviewedAt); err != nil {
				return err
			}
			final = RequestRejected
			return tx.AppendAudit(ctx, AuditEntry{
				Timestamp: reviewedAt,
				ActorID:   reviewerID,
				Action:    AuditRequestRejected,
				TargetID:  requestID,
				Payload:   map[string]any{"event_id": req.EventID},
			})

		default:
			return fmt.Errorf("decision %q: %w", decision, ErrUnknownDecision)
		}
	})
	return final, err
}
