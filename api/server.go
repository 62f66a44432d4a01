/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zap, one line per request
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. Metrics:       Prometheus request count and latency
  5. CORS:          Cross-origin requests for frontend

ROUTE GROUPS:
  /healthz, /metrics     Public
  /api/auth/*            Public
  /api/users/*           Authenticated
  /api/leaves/*          Authenticated, then per-route role gates

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authenticate, RequireRoles, RequestLogger
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/leave-engine/leave"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log()))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/users/me", h.Me)

			r.Route("/leaves", func(r chi.Router) {
				r.With(h.RequireRoles(leave.RoleUser)).Post("/", h.CreateLeave)
				r.With(h.RequireRoles(leave.RoleAdmin, leave.RoleUser)).Get("/", h.ListLeaves)
				r.With(h.RequireRoles(leave.RoleAdmin)).Get("/stats", h.LeaveStats)
				r.With(h.RequireRoles(leave.RoleAdmin, leave.RoleUser)).Get("/{id}", h.GetLeave)
				r.With(h.RequireRoles(leave.RoleAdmin, leave.RoleUser)).Put("/{id}", h.UpdateLeave)
				r.Delete("/{id}", h.DeleteLeave)
			})
		})
	})

	return r
}
