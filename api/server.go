/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zap access log (status, duration, request id)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for frontend
  5. Auth:          Bearer token to leave.Principal (everything under /api)

ROUTE GROUPS:
  /healthz              Liveness (public)
  /api/leave/*          Employee submissions, queries and manager approval
  /api/admin/*          Leave type and company rule administration
  /api/holidays/*       Public holidays for the working-day policy
  /api/scenarios/*      Demo scenarios (dev only)

PERMISSIONS:
  leave_management:read_all   GET /api/leave/requests
  leave_management:update     PUT /api/leave/{id}
  leave_management:configure  admin, holiday writes and scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token parsing and permission checks
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Auth           *Authenticator
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Auth.Middleware)

		// Leave routes
		r.Route("/leave", func(r chi.Router) {
			r.Post("/validate", h.ValidateLeave)
			r.Post("/create-single", h.CreateSingle)
			r.Post("/create-split", h.CreateSplit)
			r.Get("/config", h.GetConfig)
			r.Get("/calendar", h.GetCalendar)
			r.Get("/my-requests", h.MyRequests)
			r.With(RequirePermission(leave.PermReadAll)).Get("/requests", h.ManagedRequests)
			r.Get("/{id}", h.GetRequest)
			r.With(RequirePermission(leave.PermUpdateRequests)).Put("/{id}", h.UpdateRequest)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequirePermission(leave.PermManageConfig))
			r.Get("/leave-types", h.ListLeaveTypes)
			r.Post("/leave-types", h.SaveLeaveType)
			r.Delete("/leave-types/{id}", h.DeleteLeaveType)
			r.Get("/company-rules", h.ListCompanyRules)
			r.Put("/company-rules", h.SaveCompanyRule)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.With(RequirePermission(leave.PermManageConfig)).Post("/", h.CreateHoliday)
			r.With(RequirePermission(leave.PermManageConfig)).Delete("/{id}", h.DeleteHoliday)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Use(RequirePermission(leave.PermManageConfig))
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
