/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clock, /api/status, /api/report   Clock actions and reporting
  /api/requests                          Edit-request submission
  /api/admin/*                           Review, corrections, users, audit

SECURITY NOTE:
  Identity comes from the X-User-ID header; authentication is expected
  upstream. Administrator-only routes are gated in the domain layer and
  return 403 for everyone else.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Clock routes
		r.Post("/clock", h.ClockAction)
		r.Get("/status", h.GetStatus)
		r.Get("/hours-today", h.GetHoursToday)
		r.Get("/report", h.GetReport)

		// Edit requests
		r.Post("/requests", h.SubmitRequest)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Route("/requests", func(r chi.Router) {
				r.Get("/pending", h.ListPendingRequests)
				r.Post("/{id}/process", h.ProcessRequestDecision)
			})
			r.Route("/entries", func(r chi.Router) {
				r.Post("/", h.CreateManualEntry)
				r.Delete("/{id}", h.DeleteEntry)
			})
			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
			})
			r.Get("/audit", h.QueryAudit)
		})
	})

	return r
}
