/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Clock:
    ClockRequest, EventDTO, StatusDTO

  Reporting:
    ReportDTO

  Edit requests:
    SubmitEditRequest, EditRequestDTO, ProcessRequest, ProcessResultDTO

  Admin:
    ManualEntryRequest, UserDTO, CreateUserRequest, AuditEntryDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - timeclock/types.go: Domain types these map from
*/
package api

import (
	"time"

	"github.com/warp/punchclock/timeclock"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ClockRequest is the request to record a clock action.
type ClockRequest struct {
	Action string `json:"action"`
}

// EventDTO represents a recorded clock event in API responses.
type EventDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Date      string `json:"date"`
}

// StatusDTO is the current working status of a user, with the dashboard
// figure for the current day.
type StatusDTO struct {
	UserID           string  `json:"user_id"`
	Status           string  `json:"status"`
	WorkedTodayHours float64 `json:"worked_today_hours"`
}

// ReportDTO summarizes worked and break time over a period.
type ReportDTO struct {
	UserID      string     `json:"user_id"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	WorkedHours float64    `json:"worked_hours"`
	BreakHours  float64    `json:"break_hours"`
	Events      []EventDTO `json:"events"`
}

// SubmitEditRequest is the request to propose a timestamp correction.
type SubmitEditRequest struct {
	EventID           string `json:"event_id"`
	ProposedTimestamp string `json:"proposed_timestamp"`
	Reason            string `json:"reason"`
}

// EditRequestDTO represents an edit request in API responses.
type EditRequestDTO struct {
	ID                string  `json:"id"`
	EventID           string  `json:"event_id"`
	UserID            string  `json:"user_id"`
	ProposedTimestamp string  `json:"proposed_timestamp"`
	Reason            string  `json:"reason"`
	Status            string  `json:"status"`
	ReviewerID        *string `json:"reviewer_id,omitempty"`
	ReviewedAt        *string `json:"reviewed_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// ProcessRequest is the request to accept or reject an edit request.
type ProcessRequest struct {
	Decision string `json:"decision"`
}

// ProcessResultDTO is the outcome of processing an edit request.
type ProcessResultDTO struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// ManualEntryRequest is the admin request to insert an event directly.
type ManualEntryRequest struct {
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Admin     bool   `json:"admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to register a user.
type CreateUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// AuditEntryDTO represents an audit log entry.
type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	TargetID  string         `json:"target_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEventDTO(ev timeclock.TimeEvent) EventDTO {
	return EventDTO{
		ID:        ev.ID,
		UserID:    ev.UserID,
		Timestamp: ev.Timestamp.Format(time.RFC3339),
		Action:    string(ev.Action),
		Date:      ev.Date,
	}
}

func toEventDTOs(events []timeclock.TimeEvent) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	return dtos
}

func toEditRequestDTO(req timeclock.EditRequest) EditRequestDTO {
	dto := EditRequestDTO{
		ID:                req.ID,
		EventID:           req.EventID,
		UserID:            req.UserID,
		ProposedTimestamp: req.ProposedTimestamp.Format(time.RFC3339),
		Reason:            req.Reason,
		Status:            string(req.Status),
		ReviewerID:        req.ReviewerID,
		CreatedAt:         req.CreatedAt.Format(time.RFC3339),
	}
	if req.ReviewedAt != nil {
		s := req.ReviewedAt.Format(time.RFC3339)
		dto.ReviewedAt = &s
	}
	return dto
}

func toUserDTO(u timeclock.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
