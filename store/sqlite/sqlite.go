/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

INTERFACES IMPLEMENTED:
  timeclock.TxStore:   events, edit requests, audit log, WithTx
  timeclock.Directory: user records and the administrator predicate

TRANSACTIONS:
  WithTx wraps a database transaction; the clock-action path and the
  review accept/reject path run entirely inside it. Guarded updates
  (UpdateEventTimestamp, MarkReviewed) use conditional UPDATEs so a
  decision can never apply twice even under concurrent reviewers.

TIMESTAMPS:
  Stored RFC3339 in UTC so lexical ordering is chronological. The
  derived date column is computed from the timestamp's original local
  date before normalization and recomputed whenever an accepted edit
  rewrites the timestamp.

WAL MODE:
  The database is opened with WAL so reporting reads do not block the
  single writer.

MIGRATION:
  Schema is applied on New() via goose embedded migrations
  (migrations/files).

SEE ALSO:
  - timeclock/store.go: interface definitions
  - store/memory: in-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/punchclock/migrations"
	"github.com/warp/punchclock/timeclock"
)

const timeLayout = time.RFC3339Nano

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time interface checks.
var (
	_ timeclock.TxStore   = (*Store)(nil)
	_ timeclock.Directory = (*Store)(nil)
)

// New creates a SQLite store at the given path and applies migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases intact and matches
	// the single-writer model.
	db.SetMaxOpenConns(1)

	if err := migrations.Up(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ENTRY STORE (timeclock.EntryStore interface)
// =============================================================================

// CreateEvent persists a clock event.
func (s *Store) CreateEvent(ctx context.Context, ev timeclock.TimeEvent) (timeclock.TimeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEvent(ctx, s.db, ev)
}

func (s *Store) createEvent(ctx context.Context, q dbtx, ev timeclock.TimeEvent) (timeclock.TimeEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Date == "" {
		ev.Date = timeclock.DateOf(ev.Timestamp)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO events (id, user_id, timestamp, action, date_only) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.Timestamp.UTC().Format(timeLayout), ev.Action, ev.Date,
	)
	if err != nil {
		return timeclock.TimeEvent{}, fmt.Errorf("insert event: %w", err)
	}
	ev.Timestamp = ev.Timestamp.UTC()
	return ev, nil
}

// GetEvent returns an event by id, or (nil, nil) if missing.
func (s *Store) GetEvent(ctx context.Context, id string) (*timeclock.TimeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEvent(ctx, s.db, id)
}

func (s *Store) getEvent(ctx context.Context, q dbtx, id string) (*timeclock.TimeEvent, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, timestamp, action, date_only FROM events WHERE id = ?`, id)
	ev, err := scanEventRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MostRecentEvent returns the user's latest event, or (nil, nil).
func (s *Store) MostRecentEvent(ctx context.Context, userID string) (*timeclock.TimeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mostRecentEvent(ctx, s.db, userID)
}

func (s *Store) mostRecentEvent(ctx context.Context, q dbtx, userID string) (*timeclock.TimeEvent, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, timestamp, action, date_only
		 FROM events WHERE user_id = ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT 1`, userID)
	ev, err := scanEventRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// EventsInRange returns events whose derived date falls in [start, end],
// ascending by timestamp.
func (s *Store) EventsInRange(ctx context.Context, userID string, start, end time.Time) ([]timeclock.TimeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsInRange(ctx, s.db, userID, start, end)
}

func (s *Store) eventsInRange(ctx context.Context, q dbtx, userID string, start, end time.Time) ([]timeclock.TimeEvent, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, timestamp, action, date_only
		 FROM events
		 WHERE user_id = ? AND date_only >= ? AND date_only <= ?
		 ORDER BY timestamp ASC, rowid ASC`,
		userID, timeclock.DateOf(start), timeclock.DateOf(end),
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []timeclock.TimeEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpdateEventTimestamp replaces an event's timestamp and recomputes the
// derived date.
func (s *Store) UpdateEventTimestamp(ctx context.Context, id string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateEventTimestamp(ctx, s.db, id, ts)
}

func (s *Store) updateEventTimestamp(ctx context.Context, q dbtx, id string, ts time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE events SET timestamp = ?, date_only = ? WHERE id = ?`,
		ts.UTC().Format(timeLayout), timeclock.DateOf(ts), id,
	)
	if err != nil {
		return fmt.Errorf("update event timestamp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, timeclock.ErrEventNotFound)
	}
	return nil
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEvent(ctx, s.db, id)
}

func (s *Store) deleteEvent(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, timeclock.ErrEventNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (timeclock.TimeEvent, error) {
	var (
		ev     timeclock.TimeEvent
		ts     string
		action string
	)
	if err := r.Scan(&ev.ID, &ev.UserID, &ts, &action, &ev.Date); err != nil {
		return ev, err
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return ev, fmt.Errorf("parse event timestamp: %w", err)
	}
	ev.Timestamp = t
	ev.Action = timeclock.Action(action)
	return ev, nil
}

func scanEventRow(row *sql.Row) (timeclock.TimeEvent, error) {
	return scanEvent(row)
}

// =============================================================================
// REQUEST STORE (timeclock.RequestStore interface)
// =============================================================================

// CreateRequest persists an edit request.
func (s *Store) CreateRequest(ctx context.Context, req timeclock.EditRequest) (timeclock.EditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRequest(ctx, s.db, req)
}

func (s *Store) createRequest(ctx context.Context, q dbtx, req timeclock.EditRequest) (timeclock.EditRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = timeclock.RequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO edit_requests (id, event_id, user_id, proposed_timestamp, reason, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.EventID, req.UserID,
		req.ProposedTimestamp.UTC().Format(timeLayout),
		req.Reason, req.Status, req.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return timeclock.EditRequest{}, fmt.Errorf("insert edit request: %w", err)
	}
	return req, nil
}

// GetRequest returns a request by id, or (nil, nil) if missing.
func (s *Store) GetRequest(ctx context.Context, id string) (*timeclock.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRequest(ctx, s.db, id)
}

func (s *Store) getRequest(ctx context.Context, q dbtx, id string) (*timeclock.EditRequest, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, proposed_timestamp, reason, status, reviewer_id, reviewed_at, created_at
		 FROM edit_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// PendingRequests returns PENDING requests ordered by proposed
// timestamp ascending.
func (s *Store) PendingRequests(ctx context.Context) ([]timeclock.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingRequests(ctx, s.db)
}

func (s *Store) pendingRequests(ctx context.Context, q dbtx) ([]timeclock.EditRequest, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, user_id, proposed_timestamp, reason, status, reviewer_id, reviewed_at, created_at
		 FROM edit_requests
		 WHERE status = ?
		 ORDER BY proposed_timestamp ASC`, timeclock.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer rows.Close()

	var requests []timeclock.EditRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// MarkReviewed moves a PENDING request to a terminal status. The WHERE
// clause guards against a second decision applying.
func (s *Store) MarkReviewed(ctx context.Context, id string, status timeclock.RequestStatus, reviewerID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markReviewed(ctx, s.db, id, status, reviewerID, at)
}

func (s *Store) markReviewed(ctx context.Context, q dbtx, id string, status timeclock.RequestStatus, reviewerID string, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE edit_requests SET status = ?, reviewer_id = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`,
		status, reviewerID, at.UTC().Format(timeLayout), id, timeclock.RequestPending,
	)
	if err != nil {
		return fmt.Errorf("mark request reviewed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	existing, err := s.getRequest(ctx, q, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("request %s: %w", id, timeclock.ErrRequestNotFound)
	}
	return &timeclock.NotPendingError{RequestID: id, Status: existing.Status}
}

func scanRequest(r rowScanner) (timeclock.EditRequest, error) {
	var (
		req        timeclock.EditRequest
		proposed   string
		status     string
		reviewerID sql.NullString
		reviewedAt sql.NullString
		createdAt  string
	)
	if err := r.Scan(&req.ID, &req.EventID, &req.UserID, &proposed, &req.Reason,
		&status, &reviewerID, &reviewedAt, &createdAt); err != nil {
		return req, err
	}

	t, err := time.Parse(timeLayout, proposed)
	if err != nil {
		return req, fmt.Errorf("parse proposed timestamp: %w", err)
	}
	req.ProposedTimestamp = t
	req.Status = timeclock.RequestStatus(status)
	req.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if reviewerID.Valid {
		req.ReviewerID = &reviewerID.String
	}
	if reviewedAt.Valid {
		rt, err := time.Parse(timeLayout, reviewedAt.String)
		if err != nil {
			return req, fmt.Errorf("parse reviewed_at: %w", err)
		}
		req.ReviewedAt = &rt
	}
	return req, nil
}

// =============================================================================
// AUDIT LOG (timeclock.AuditLog interface)
// =============================================================================

// AppendAudit records an audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry timeclock.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAudit(ctx, s.db, entry)
}

func (s *Store) appendAudit(ctx context.Context, q dbtx, entry timeclock.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	payloadJSON, _ := json.Marshal(entry.Payload)

	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_log (id, timestamp, actor_id, action, target_id, payload_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(timeLayout),
		entry.ActorID, entry.Action, entry.TargetID, string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns audit entries matching the filter, newest first.
func (s *Store) QueryAudit(ctx context.Context, filter timeclock.AuditFilter) ([]timeclock.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, timestamp, actor_id, action, target_id, payload_json FROM audit_log WHERE 1=1`
	var args []any

	if filter.ActorID != "" {
		query += ` AND actor_id = ?`
		args = append(args, filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		query += ` AND action IN (?` + repeat(",?", len(filter.Actions)-1) + `)`
		for _, a := range filter.Actions {
			args = append(args, a)
		}
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []timeclock.AuditEntry
	for rows.Next() {
		var (
			entry       timeclock.AuditEntry
			ts          string
			action      string
			targetID    sql.NullString
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.ActorID, &action, &targetID, &payloadJSON); err != nil {
			return nil, err
		}
		entry.Timestamp, _ = time.Parse(timeLayout, ts)
		entry.Action = timeclock.AuditAction(action)
		entry.TargetID = targetID.String
		if payloadJSON.Valid && payloadJSON.String != "" {
			json.Unmarshal([]byte(payloadJSON.String), &entry.Payload)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

// =============================================================================
// TRANSACTIONAL STORE (timeclock.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Rolled back if fn
// returns an error, committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(timeclock.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through an open transaction. The parent's
// mutex is already held by WithTx, so these go straight to the
// unexported query helpers.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

var _ timeclock.Store = (*txStore)(nil)

func (ts *txStore) CreateEvent(ctx context.Context, ev timeclock.TimeEvent) (timeclock.TimeEvent, error) {
	return ts.parent.createEvent(ctx, ts.tx, ev)
}

func (ts *txStore) GetEvent(ctx context.Context, id string) (*timeclock.TimeEvent, error) {
	return ts.parent.getEvent(ctx, ts.tx, id)
}

func (ts *txStore) MostRecentEvent(ctx context.Context, userID string) (*timeclock.TimeEvent, error) {
	return ts.parent.mostRecentEvent(ctx, ts.tx, userID)
}

func (ts *txStore) EventsInRange(ctx context.Context, userID string, start, end time.Time) ([]timeclock.TimeEvent, error) {
	return ts.parent.eventsInRange(ctx, ts.tx, userID, start, end)
}

func (ts *txStore) UpdateEventTimestamp(ctx context.Context, id string, t time.Time) error {
	return ts.parent.updateEventTimestamp(ctx, ts.tx, id, t)
}

func (ts *txStore) DeleteEvent(ctx context.Context, id string) error {
	return ts.parent.deleteEvent(ctx, ts.tx, id)
}

func (ts *txStore) CreateRequest(ctx context.Context, req timeclock.EditRequest) (timeclock.EditRequest, error) {
	return ts.parent.createRequest(ctx, ts.tx, req)
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*timeclock.EditRequest, error) {
	return ts.parent.getRequest(ctx, ts.tx, id)
}

func (ts *txStore) PendingRequests(ctx context.Context) ([]timeclock.EditRequest, error) {
	return ts.parent.pendingRequests(ctx, ts.tx)
}

func (ts *txStore) MarkReviewed(ctx context.Context, id string, status timeclock.RequestStatus, reviewerID string, at time.Time) error {
	return ts.parent.markReviewed(ctx, ts.tx, id, status, reviewerID, at)
}

func (ts *txStore) AppendAudit(ctx context.Context, entry timeclock.AuditEntry) error {
	return ts.parent.appendAudit(ctx, ts.tx, entry)
}

func (ts *txStore) QueryAudit(ctx context.Context, filter timeclock.AuditFilter) ([]timeclock.AuditEntry, error) {
	// Audit queries are read-only; route to the parent connection is
	// not possible here because the mutex is held, so use the tx.
	rows, err := ts.tx.QueryContext(ctx,
		`SELECT id, timestamp, actor_id, action, target_id, payload_json FROM audit_log ORDER BY timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []timeclock.AuditEntry
	for rows.Next() {
		var (
			entry       timeclock.AuditEntry
			tsCol       string
			action      string
			targetID    sql.NullString
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&entry.ID, &tsCol, &entry.ActorID, &action, &targetID, &payloadJSON); err != nil {
			return nil, err
		}
		entry.Timestamp, _ = time.Parse(timeLayout, tsCol)
		entry.Action = timeclock.AuditAction(action)
		entry.TargetID = targetID.String
		if payloadJSON.Valid && payloadJSON.String != "" {
			json.Unmarshal([]byte(payloadJSON.String), &entry.Payload)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// DIRECTORY (timeclock.Directory interface)
// =============================================================================

// SaveUser creates or updates a user.
func (s *Store) SaveUser(ctx context.Context, u timeclock.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			is_admin = excluded.is_admin`,
		u.ID, u.Name, u.Email, u.Admin, u.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetUser returns a user by id, or (nil, nil) if missing.
func (s *Store) GetUser(ctx context.Context, id string) (*timeclock.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u         timeclock.User
		email     sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &email, &u.Admin, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]timeclock.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []timeclock.User
	for rows.Next() {
		var (
			u         timeclock.User
			email     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Name, &email, &u.Admin, &createdAt); err != nil {
			return nil, err
		}
		u.Email = email.String
		u.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// IsAdministrator reports whether the user exists and is an
// administrator. A missing user is simply not an administrator.
func (s *Store) IsAdministrator(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var admin bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_admin FROM users WHERE id = ?`, id).Scan(&admin)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return admin, nil
}
