// Package timeclock implements the core of an employee time-tracking
// system: clock events, status resolution, transition validation,
// work/break period aggregation, and the edit-request review workflow.
// HTTP routing, rendering, and authentication live outside this package
// and call in with already-validated primitive inputs.
package timeclock

import "time"

// =============================================================================
// CLOCK ACTIONS
// =============================================================================

// Action is a single kind of clock event.
type Action string

const (
	ActionIn         Action = "IN"
	ActionOut        Action = "OUT"
	ActionBreakStart Action = "BREAK_START"
	ActionBreakEnd   Action = "BREAK_END"
)

// Valid reports whether a is one of the four enumerated actions.
func (a Action) Valid() bool {
	switch a {
	case ActionIn, ActionOut, ActionBreakStart, ActionBreakEnd:
		return true
	}
	return false
}

// ParseAction converts a raw string into an Action.
// Anything outside the four enumerated kinds is rejected.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", &UnknownActionError{Raw: s}
	}
	return a, nil
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the logical current state of a user, derived from their
// most recent clock event. BREAK_END is never a status: a finished
// break resumes the working state, so the resolver folds it into IN.
type Status string

const (
	StatusOut        Status = "OUT"
	StatusIn         Status = "IN"
	StatusBreakStart Status = "BREAK_START"
)

// StatusAfter returns the status a user is in once this action is their
// most recent recorded event.
func (a Action) StatusAfter() Status {
	switch a {
	case ActionIn, ActionBreakEnd:
		return StatusIn
	case ActionBreakStart:
		return StatusBreakStart
	default:
		return StatusOut
	}
}

// =============================================================================
// TIME EVENTS
// =============================================================================

// DateLayout is the derived-date format used for range indexing.
const DateLayout = "2006-01-02"

// TimeEvent is a single timestamped clock action. Immutable once
// created, except via an accepted edit request, which replaces the
// timestamp (and with it the derived date).
type TimeEvent struct {
	ID        string
	UserID    string
	Timestamp time.Time
	Action    Action
	// Date is derived from Timestamp in the timestamp's own location
	// and indexes events for range queries.
	Date string
}

// NewTimeEvent builds an event with its derived date filled in.
// The ID is assigned by the store on create.
func NewTimeEvent(userID string, ts time.Time, action Action) TimeEvent {
	return TimeEvent{
		UserID:    userID,
		Timestamp: ts,
		Action:    action,
		Date:      DateOf(ts),
	}
}

// DateOf derives the indexing date for a timestamp.
func DateOf(ts time.Time) string {
	return ts.Format(DateLayout)
}

// =============================================================================
// EDIT REQUESTS
// =============================================================================

// RequestStatus is the lifecycle state of an edit request.
// PENDING transitions exactly once to ACCEPTED or REJECTED; the
// terminal states are immutable.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// Terminal reports whether the status can no longer change.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// EditRequest is a user-submitted proposal to change a historical
// event's timestamp, subject to administrative approval.
type EditRequest struct {
	ID                string
	EventID           string
	UserID            string
	ProposedTimestamp time.Time
	Reason            string
	Status            RequestStatus
	// ReviewerID and ReviewedAt are set when the request leaves
	// PENDING and are never cleared.
	ReviewerID *string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// ReviewDecision is an administrator's verdict on a pending request.
type ReviewDecision string

const (
	DecisionAccept ReviewDecision = "accept"
	DecisionReject ReviewDecision = "reject"
)

// ParseReviewDecision converts a raw string into a ReviewDecision.
func ParseReviewDecision(s string) (ReviewDecision, error) {
	switch d := ReviewDecision(s); d {
	case DecisionAccept, DecisionReject:
		return d, nil
	}
	return "", ErrUnknownDecision
}

// =============================================================================
// USERS
// =============================================================================

// User is the minimal identity record the core needs: an opaque
// identifier plus the administrator predicate. Credentials and
// session handling belong to the caller.
type User struct {
	ID        string
	Name      string
	Email     string
	Admin     bool
	CreatedAt time.Time
}
