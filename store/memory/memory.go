// Package memory provides in-memory Store and Directory
// implementations for tests and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/punchclock/timeclock"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps everything in slices and maps under one mutex. WithTx is
// simulated with a snapshot that is restored on error.
type Store struct {
	mu       sync.RWMutex
	events   []timeclock.TimeEvent
	requests []timeclock.EditRequest
	audit    []timeclock.AuditEntry
	users    map[string]timeclock.User
}

var (
	_ timeclock.TxStore   = (*Store)(nil)
	_ timeclock.Directory = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{users: make(map[string]timeclock.User)}
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (m *Store) CreateEvent(_ context.Context, ev timeclock.TimeEvent) (timeclock.TimeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createEventLocked(ev)
}

func (m *Store) createEventLocked(ev timeclock.TimeEvent) (timeclock.TimeEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Date == "" {
		ev.Date = timeclock.DateOf(ev.Timestamp)
	}
	m.events = append(m.events, ev)
	return ev, nil
}

func (m *Store) GetEvent(_ context.Context, id string) (*timeclock.TimeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEventLocked(id), nil
}

func (m *Store) getEventLocked(id string) *timeclock.TimeEvent {
	for i := range m.events {
		if m.events[i].ID == id {
			ev := m.events[i]
			return &ev
		}
	}
	return nil
}

func (m *Store) MostRecentEvent(_ context.Context, userID string) (*timeclock.TimeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mostRecentLocked(userID), nil
}

func (m *Store) mostRecentLocked(userID string) *timeclock.TimeEvent {
	var latest *timeclock.TimeEvent
	for i := range m.events {
		ev := m.events[i]
		if ev.UserID != userID {
			continue
		}
		if latest == nil || !ev.Timestamp.Before(latest.Timestamp) {
			cp := ev
			latest = &cp
		}
	}
	return latest
}

func (m *Store) EventsInRange(_ context.Context, userID string, start, end time.Time) ([]timeclock.TimeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventsInRangeLocked(userID, start, end), nil
}

func (m *Store) eventsInRangeLocked(userID string, start, end time.Time) []timeclock.TimeEvent {
	from, to := timeclock.DateOf(start), timeclock.DateOf(end)
	var result []timeclock.TimeEvent
	for _, ev := range m.events {
		if ev.UserID == userID && ev.Date >= from && ev.Date <= to {
			result = append(result, ev)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}

func (m *Store) UpdateEventTimestamp(_ context.Context, id string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateEventLocked(id, ts)
}

func (m *Store) updateEventLocked(id string, ts time.Time) error {
	for i := range m.events {
		if m.events[i].ID == id {
			m.events[i].Timestamp = ts
			m.events[i].Date = timeclock.DateOf(ts)
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, timeclock.ErrEventNotFound)
}

func (m *Store) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEventLocked(id)
}

func (m *Store) deleteEventLocked(id string) error {
	for i := range m.events {
		if m.events[i].ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, timeclock.ErrEventNotFound)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (m *Store) CreateRequest(_ context.Context, req timeclock.EditRequest) (timeclock.EditRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRequestLocked(req)
}

func (m *Store) createRequestLocked(req timeclock.EditRequest) (timeclock.EditRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = timeclock.RequestPending
	}
	m.requests = append(m.requests, req)
	return req, nil
}

func (m *Store) GetRequest(_ context.Context, id string) (*timeclock.EditRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id), nil
}

func (m *Store) getRequestLocked(id string) *timeclock.EditRequest {
	for i := range m.requests {
		if m.requests[i].ID == id {
			req := m.requests[i]
			return &req
		}
	}
	return nil
}

func (m *Store) PendingRequests(_ context.Context) ([]timeclock.EditRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingLocked(), nil
}

func (m *Store) pendingLocked() []timeclock.EditRequest {
	var result []timeclock.EditRequest
	for _, req := range m.requests {
		if req.Status == timeclock.RequestPending {
			result = append(result, req)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ProposedTimestamp.Before(result[j].ProposedTimestamp)
	})
	return result
}

func (m *Store) MarkReviewed(_ context.Context, id string, status timeclock.RequestStatus, reviewerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markReviewedLocked(id, status, reviewerID, at)
}

func (m *Store) markReviewedLocked(id string, status timeclock.RequestStatus, reviewerID string, at time.Time) error {
	for i := range m.requests {
		if m.requests[i].ID != id {
			continue
		}
		if m.requests[i].Status != timeclock.RequestPending {
			return &timeclock.NotPendingError{RequestID: id, Status: m.requests[i].Status}
		}
		m.requests[i].Status = status
		m.requests[i].ReviewerID = &reviewerID
		m.requests[i].ReviewedAt = &at
		return nil
	}
	return fmt.Errorf("request %s: %w", id, timeclock.ErrRequestNotFound)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Store) AppendAudit(_ context.Context, entry timeclock.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAuditLocked(entry)
}

func (m *Store) appendAuditLocked(entry timeclock.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Store) QueryAudit(_ context.Context, filter timeclock.AuditFilter) ([]timeclock.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryAuditLocked(filter), nil
}

func (m *Store) queryAuditLocked(filter timeclock.AuditFilter) []timeclock.AuditEntry {
	var result []timeclock.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		entry := m.audit[i]
		if filter.ActorID != "" && entry.ActorID != filter.ActorID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, entry.Action) {
			continue
		}
		result = append(result, entry)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result
}

func containsAction(actions []timeclock.AuditAction, a timeclock.AuditAction) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx simulates a transaction with a snapshot restored on error.
func (m *Store) WithTx(_ context.Context, fn func(timeclock.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()
	if err := fn(&txView{parent: m}); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

type snapshot struct {
	events   []timeclock.TimeEvent
	requests []timeclock.EditRequest
	audit    []timeclock.AuditEntry
}

func (m *Store) snapshotLocked() snapshot {
	return snapshot{
		events:   append([]timeclock.TimeEvent(nil), m.events...),
		requests: append([]timeclock.EditRequest(nil), m.requests...),
		audit:    append([]timeclock.AuditEntry(nil), m.audit...),
	}
}

func (m *Store) restoreLocked(s snapshot) {
	m.events = s.events
	m.requests = s.requests
	m.audit = s.audit
}

// txView routes Store calls to the parent while its mutex is held.
type txView struct {
	parent *Store
}

var _ timeclock.Store = (*txView)(nil)

func (tv *txView) CreateEvent(_ context.Context, ev timeclock.TimeEvent) (timeclock.TimeEvent, error) {
	return tv.parent.createEventLocked(ev)
}

func (tv *txView) GetEvent(_ context.Context, id string) (*timeclock.TimeEvent, error) {
	return tv.parent.getEventLocked(id), nil
}

func (tv *txView) MostRecentEvent(_ context.Context, userID string) (*timeclock.TimeEvent, error) {
	return tv.parent.mostRecentLocked(userID), nil
}

func (tv *txView) EventsInRange(_ context.Context, userID string, start, end time.Time) ([]timeclock.TimeEvent, error) {
	return tv.parent.eventsInRangeLocked(userID, start, end), nil
}

func (tv *txView) UpdateEventTimestamp(_ context.Context, id string, ts time.Time) error {
	return tv.parent.updateEventLocked(id, ts)
}

func (tv *txView) DeleteEvent(_ context.Context, id string) error {
	return tv.parent.deleteEventLocked(id)
}

func (tv *txView) CreateRequest(_ context.Context, req timeclock.EditRequest) (timeclock.EditRequest, error) {
	return tv.parent.createRequestLocked(req)
}

func (tv *txView) GetRequest(_ context.Context, id string) (*timeclock.EditRequest, error) {
	return tv.parent.getRequestLocked(id), nil
}

func (tv *txView) PendingRequests(_ context.Context) ([]timeclock.EditRequest, error) {
	return tv.parent.pendingLocked(), nil
}

func (tv *txView) MarkReviewed(_ context.Context, id string, status timeclock.RequestStatus, reviewerID string, at time.Time) error {
	return tv.parent.markReviewedLocked(id, status, reviewerID, at)
}

func (tv *txView) AppendAudit(_ context.Context, entry timeclock.AuditEntry) error {
	return tv.parent.appendAuditLocked(entry)
}

func (tv *txView) QueryAudit(_ context.Context, filter timeclock.AuditFilter) ([]timeclock.AuditEntry, error) {
	return tv.parent.queryAuditLocked(filter), nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Store) SaveUser(_ context.Context, u timeclock.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.ID] = u
	return nil
}

func (m *Store) GetUser(_ context.Context, id string) (*timeclock.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *Store) ListUsers(_ context.Context) ([]timeclock.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]timeclock.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (m *Store) IsAdministrator(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return ok && u.Admin, nil
}
