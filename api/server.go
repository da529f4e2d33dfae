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
  /api/properties/*     Property listing and availability
  /api/bookings/*       Booking lifecycle (create, approve, reject, cancel)
  /api/dealers/*        Dealer registration and referral tree
  /api/commissions/*    Commission calculation and level config
  /api/admin/*          Admin operations (expiry sweep)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Admin endpoints must sit behind an authenticating proxy in production.

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
		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
			r.Get("/{id}/availability", h.GetAvailability)
		})

		// Booking lifecycle routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/approve", h.ApproveBooking)
			r.Post("/{id}/reject", h.RejectBooking)
			r.Post("/{id}/cancel", h.CancelBooking)
			r.Post("/{id}/unbook", h.UnbookProperty)
		})

		// Dealer routes
		r.Route("/dealers", func(r chi.Router) {
			r.Post("/", h.RegisterDealer)
			r.Get("/{id}", h.GetDealer)
			r.Put("/{id}/status", h.SetDealerStatus)
			r.Get("/{id}/subtree", h.GetDealerSubtree)
			r.Get("/{id}/commissions", h.ListDealerCommissions)
		})

		// Commission routes
		r.Route("/commissions", func(r chi.Router) {
			r.Post("/calculate", h.CalculateCommissions)
			r.Get("/config", h.GetCommissionConfig)
			r.Put("/config", h.SetCommissionConfig)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})
	})

	return r
}
