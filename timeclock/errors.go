/*
errors.go - Centralized error types for the timeclock core

PURPOSE:
  All sentinel errors in one place. Callers match with errors.Is and map
  each category to their own surface (the HTTP adapter maps validation
  errors to 400, not-found to 404, permission to 403, conflicts to 409).

ERROR CATEGORIES:
  1. Validation errors  - illegal transition, malformed input; nothing written
  2. Not-found errors   - referenced event, request, or user is missing
  3. Authorization      - non-administrator on an administrator-only path
  4. Conflict           - re-processing an already-terminal edit request

SEE ALSO:
  - service.go:  wraps these with action/status context
  - workflow.go: wraps these with request context
*/
package timeclock

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownAction is returned for an action outside the four
	// enumerated kinds. The transition table is a whitelist, so unknown
	// actions are rejected before any state is consulted.
	ErrUnknownAction = errors.New("unknown clock action")

	// ErrInvalidTransition is returned when a requested action is not
	// legal for the user's current status. Nothing is recorded.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidPeriod is returned when a reporting range is malformed
	// (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrReasonRequired is returned when an edit request is submitted
	// without a reason.
	ErrReasonRequired = errors.New("edit request reason is required")

	// ErrEventNotFound is returned when a referenced time event does not exist.
	ErrEventNotFound = errors.New("time event not found")

	// ErrRequestNotFound is returned when a referenced edit request does not exist.
	ErrRequestNotFound = errors.New("edit request not found")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrPermissionDenied is returned when a non-administrator attempts
	// an administrator-only operation, or a user touches another user's
	// records. Never silently downgraded.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRequestNotPending is returned when a review decision targets a
	// request that has already been accepted or rejected. The existing
	// terminal state is reported; no second mutation happens.
	ErrRequestNotPending = errors.New("edit request is not pending")

	// ErrUnknownDecision is returned for a review decision other than
	// accept or reject.
	ErrUnknownDecision = errors.New("unknown review decision")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownActionError reports the raw string that failed to parse.
type UnknownActionError struct {
	Raw string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown clock action %q", e.Raw)
}

func (e *UnknownActionError) Unwrap() error { return ErrUnknownAction }

// TransitionError reports which action was illegal in which status.
type TransitionError struct {
	Action Action
	Status Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.Status)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NotPendingError reports the terminal state a second reviewer ran into.
type NotPendingError struct {
	RequestID string
	Status    RequestStatus
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("edit request %s already %s", e.RequestID, e.Status)
}

func (e *NotPendingError) Unwrap() error { return ErrRequestNotPending }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrUnknownDecision)
}
