/*
store.go - Persistence interfaces between the core and the database

PURPOSE:
  Defines what the core needs from a durable store. The store owns
  TimeEvents and EditRequests; the core mutates them only through these
  interfaces, and the accept path only inside WithTx.

KEY INTERFACES:
  EntryStore:   clock-event persistence and range queries
  RequestStore: edit-request lifecycle persistence
  AuditLog:     append-only who-did-what record
  Store:        the three above, as seen inside a transaction
  TxStore:      Store plus WithTx for atomic multi-write units
  Directory:    user lookup and the administrator predicate

NOT-FOUND CONVENTION:
  Single-record getters return (nil, nil) when the record is missing;
  the core turns that into its own not-found sentinel. Guarded updates
  (UpdateEventTimestamp, MarkReviewed) return the sentinel directly.

IMPLEMENTATIONS:
  - store/sqlite: production store (SQLite, WAL, real transactions)
  - store/memory: in-memory store for unit tests
*/
package timeclock

import (
	"context"
	"time"
)

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryStore persists clock events.
type EntryStore interface {
	// CreateEvent persists ev, assigning an ID if none is set, and
	// returns the stored event.
	CreateEvent(ctx context.Context, ev TimeEvent) (TimeEvent, error)

	// GetEvent returns the event with the given id, or (nil, nil) if it
	// does not exist.
	GetEvent(ctx context.Context, id string) (*TimeEvent, error)

	// MostRecentEvent returns the user's latest event by timestamp, or
	// (nil, nil) if the user has no events.
	MostRecentEvent(ctx context.Context, userID string) (*TimeEvent, error)

	// EventsInRange returns the user's events whose derived date falls
	// in [start, end], ascending by timestamp.
	EventsInRange(ctx context.Context, userID string, start, end time.Time) ([]TimeEvent, error)

	// UpdateEventTimestamp replaces the event's timestamp and recomputes
	// its derived date. Returns ErrEventNotFound if the event is missing.
	UpdateEventTimestamp(ctx context.Context, id string, ts time.Time) error

	// DeleteEvent removes an event. Returns ErrEventNotFound if missing.
	DeleteEvent(ctx context.Context, id string) error
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists edit requests.
type RequestStore interface {
	// CreateRequest persists req in PENDING state, assigning an ID if
	// none is set, and returns the stored request.
	CreateRequest(ctx context.Context, req EditRequest) (EditRequest, error)

	// GetRequest returns the request with the given id, or (nil, nil)
	// if it does not exist.
	GetRequest(ctx context.Context, id string) (*EditRequest, error)

	// PendingRequests returns all PENDING requests ordered by proposed
	// timestamp ascending.
	PendingRequests(ctx context.Context) ([]EditRequest, error)

	// MarkReviewed moves a PENDING request to a terminal status and
	// records the reviewer and review time. The update is guarded on
	// the request still being PENDING; if it is not,
	// ErrRequestNotPending is returned and nothing changes.
	MarkReviewed(ctx context.Context, id string, status RequestStatus, reviewerID string, at time.Time) error
}

// =============================================================================
// AUDIT LOG - Who did what, when
// =============================================================================

// AuditAction classifies an audit entry.
type AuditAction string

const (
	AuditClockAction      AuditAction = "clock_action"
	AuditManualEntry      AuditAction = "manual_entry"
	AuditEntryDeleted     AuditAction = "entry_deleted"
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditRequestAccepted  AuditAction = "request_accepted"
	AuditRequestRejected  AuditAction = "request_rejected"
)

// AuditEntry records a single actor action. Append-only; entries are
// written in the same transaction as the mutation they record.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string
	Action    AuditAction
	TargetID  string
	Payload   map[string]any
}

// AuditLog stores audit entries.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditFilter narrows an audit query. Zero values match everything.
type AuditFilter struct {
	ActorID string
	Actions []AuditAction
	Limit   int
}

// =============================================================================
// COMBINED / TRANSACTIONAL STORE
// =============================================================================

// Store is everything the core touches inside one unit of work.
type Store interface {
	EntryStore
	RequestStore
	AuditLog
}

// TxStore wraps Store with transaction support. Use it for every path
// that must be an atomic read-modify-write: clock actions validated
// against the latest status, and accept/reject decisions.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error,
	// every write is rolled back; otherwise all are committed together.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// DIRECTORY - Identity provider surface
// =============================================================================

// Directory supplies user records and the administrator predicate. How
// users authenticate is the caller's concern.
type Directory interface {
	// GetUser returns the user with the given id, or (nil, nil) if the
	// user does not exist.
	GetUser(ctx context.Context, id string) (*User, error)

	// SaveUser creates or updates a user record.
	SaveUser(ctx context.Context, u User) error

	// ListUsers returns all users ordered by name.
	ListUsers(ctx context.Context) ([]User, error)

	// IsAdministrator reports whether the user exists and is an
	// administrator.
	IsAdministrator(ctx context.Context, id string) (bool, error)
}

// requireAdmin is the shared gate for administrator-only operations.
func requireAdmin(ctx context.Context, dir Directory, userID string) error {
	admin, err := dir.IsAdministrator(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return ErrPermissionDenied
	}
	return nil
}
