/*
handlers.go - HTTP API handlers for the time-tracking system

PURPOSE:
  Exposes the timeclock core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Clock:
    POST   /api/clock                  Record a clock action
    GET    /api/status                 Current working status
    GET    /api/hours-today            Worked hours for the current day
    GET    /api/report                 Worked/break hours over a range

  Edit requests:
    POST   /api/requests               Submit a timestamp correction

  Admin:
    GET    /api/admin/requests/pending        List pending requests
    POST   /api/admin/requests/{id}/process   Accept or reject a request
    POST   /api/admin/entries                 Manual event entry
    DELETE /api/admin/entries/{id}            Delete an event
    GET    /api/admin/users                   List users
    POST   /api/admin/users                   Register a user
    GET    /api/admin/audit                   Query the audit log

IDENTITY:
  The acting user is taken from the X-User-ID header. Authentication is
  assumed to happen upstream (reverse proxy, gateway); this layer only
  needs the identity and the administrator flag from the directory.

ERROR HANDLING:
  Domain errors are mapped to HTTP status by category:
  - 400: Validation errors (unknown action, illegal transition, bad period)
  - 403: Permission denied (non-admin on admin path, foreign event)
  - 404: Event, request, or user not found
  - 409: Decision on an already-terminal edit request
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - timeclock/errors.go: The error taxonomy this maps from
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/punchclock/timeclock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Clock     *timeclock.ClockService
	Review    *timeclock.ReviewService
	Directory timeclock.Directory
	Audit     timeclock.AuditLog
}

// NewHandler creates a handler over a transactional store and directory.
func NewHandler(store timeclock.TxStore, dir timeclock.Directory) *Handler {
	return &Handler{
		Clock:     &timeclock.ClockService{Store: store, Directory: dir},
		Review:    &timeclock.ReviewService{Store: store, Directory: dir},
		Directory: dir,
		Audit:     store,
	}
}

// identity extracts the acting user from the request. Empty means the
// caller never identified itself; every endpoint requires it.
func identity(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// =============================================================================
// CLOCK HANDLERS
// =============================================================================

// ClockAction records a clock action for the calling user.
func (h *Handler) ClockAction(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	action, err := timeclock.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown action", err)
		return
	}

	ev, err := h.Clock.Clock(r.Context(), userID, action)
	if err != nil {
		writeDomainError(w, "Failed to record clock action", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventDTO(ev))
}

// GetStatus returns the calling user's current working status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	status, err := h.Clock.ResolveStatus(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to resolve status", err)
		return
	}
	worked, err := h.Clock.WorkedToday(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to compute hours", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusDTO{UserID: userID, Status: string(status), WorkedTodayHours: worked})
}

// GetHoursToday returns the worked hours for the current day.
func (h *Handler) GetHoursToday(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	hours, err := h.Clock.WorkedToday(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to compute hours", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "worked_hours": hours})
}

// GetReport aggregates worked/break hours over ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	start, err := time.Parse(timeclock.DateLayout, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse(timeclock.DateLayout, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Clock.Report(r.Context(), userID, start, end)
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}

	writeJSON(w, http.StatusOK, ReportDTO{
		UserID:      userID,
		Start:       timeclock.DateOf(start),
		End:         timeclock.DateOf(end),
		WorkedHours: summary.WorkedHours,
		BreakHours:  summary.BreakHours,
		Events:      toEventDTOs(summary.Events),
	})
}

// =============================================================================
// EDIT REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a pending edit request for one of the calling
// user's own events.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	var req SubmitEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	proposed, err := time.Parse(time.RFC3339, req.ProposedTimestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid proposed_timestamp (use RFC3339)", err)
		return
	}

	created, err := h.Review.Submit(r.Context(), userID, req.EventID, proposed, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to submit edit request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEditRequestDTO(created))
}

// ListPendingRequests returns all pending edit requests. Admin-only.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	reviewerID := identity(r)
	if reviewerID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	pending, err := h.Review.ListPending(r.Context(), reviewerID)
	if err != nil {
		writeDomainError(w, "Failed to list pending requests", err)
		return
	}

	dtos := make([]EditRequestDTO, len(pending))
	for i, req := range pending {
		dtos[i] = toEditRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ProcessRequestDecision accepts or rejects a pending edit request. Admin-only.
func (h *Handler) ProcessRequestDecision(w http.ResponseWriter, r *http.Request) {
	reviewerID := identity(r)
	if reviewerID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}
	requestID := chi.URLParam(r, "id")

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	decision, err := timeclock.ParseReviewDecision(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown decision (use accept or reject)", err)
		return
	}

	status, err := h.Review.Process(r.Context(), requestID, decision, reviewerID)
	if err != nil {
		// A conflict still reports the request's terminal state.
		if errors.Is(err, timeclock.ErrRequestNotPending) {
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   "Edit request already processed",
				Details: ProcessResultDTO{RequestID: requestID, Status: string(status)},
			})
			return
		}
		writeDomainError(w, "Failed to process edit request", err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessResultDTO{RequestID: requestID, Status: string(status)})
}

// =============================================================================
// ADMIN ENTRY HANDLERS
// =============================================================================

// CreateManualEntry records an event on another user's behalf. Admin-only.
func (h *Handler) CreateManualEntry(w http.ResponseWriter, r *http.Request) {
	adminID := identity(r)
	if adminID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	var req ManualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp (use RFC3339)", err)
		return
	}
	action, err := timeclock.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown action", err)
		return
	}

	ev, err := h.Clock.CreateManualEntry(r.Context(), adminID, req.UserID, ts, action)
	if err != nil {
		writeDomainError(w, "Failed to create entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventDTO(ev))
}

// DeleteEntry removes an event. Admin-only.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	adminID := identity(r)
	if adminID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}

	if err := h.Clock.DeleteEntry(r.Context(), adminID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns the user directory. Admin-only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	adminID := identity(r)
	if adminID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}
	if !h.requireAdmin(w, r, adminID) {
		return
	}

	users, err := h.Directory.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser registers or updates a user. Admin-only.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	adminID := identity(r)
	if adminID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}
	if !h.requireAdmin(w, r, adminID) {
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	u := timeclock.User{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Admin:     req.Admin,
		CreatedAt: time.Now(),
	}
	if err := h.Directory.SaveUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// QueryAudit returns audit log entries, newest first. Admin-only.
// Query params: actor_id, action (repeatable), limit.
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	adminID := identity(r)
	if adminID == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return
	}
	if !h.requireAdmin(w, r, adminID) {
		return
	}

	filter := timeclock.AuditFilter{
		ActorID: r.URL.Query().Get("actor_id"),
		Limit:   100,
	}
	for _, a := range r.URL.Query()["action"] {
		filter.Actions = append(filter.Actions, timeclock.AuditAction(a))
	}

	entries, err := h.Audit.QueryAudit(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			TargetID:  e.TargetID,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// requireAdmin gates directory/audit endpoints that do not go through a
// service method carrying its own check. Writes the response on failure.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request, userID string) bool {
	admin, err := h.Directory.IsAdministrator(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check permissions", err)
		return false
	}
	if !admin {
		writeError(w, http.StatusForbidden, "Administrator access required", nil)
		return false
	}
	return true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a timeclock error to its HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusForError(err), message, err)
}

func statusForError(err error) int {
	switch {
	case timeclock.IsClientError(err):
		return http.StatusBadRequest
	case timeclock.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, timeclock.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, timeclock.ErrRequestNotPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
