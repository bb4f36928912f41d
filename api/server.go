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
  /api/rules/*       Pipeline runs
  /api/timecards/*   Time cards, punches, derived lines
  /api/contracts/*   Contract thresholds and rule catalogs
  /api/reset         Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Pipeline runs
		r.Route("/rules", func(r chi.Router) {
			r.Post("/apply", h.ApplyRules)
		})

		// Time card routes
		r.Route("/timecards", func(r chi.Router) {
			r.Post("/", h.CreateTimeCard)
			r.Get("/{id}", h.GetTimeCard)
			r.Get("/{id}/lines", h.GetTimeCardLines)
			r.Get("/{id}/segments", h.GetClockSegments)
		})

		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/{id}", h.GetContract)
			r.Put("/{id}", h.SaveContract)
		})

		// Dev-only reset
		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
