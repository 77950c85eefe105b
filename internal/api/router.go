package api

import (
	"net/http"

	"github.com/authstarter/backend/internal/auth"
	"github.com/authstarter/backend/internal/db"
	apperrors "github.com/authstarter/backend/internal/errors"
	"github.com/authstarter/backend/internal/health"
	"github.com/authstarter/backend/internal/metrics"
)

type Router struct {
	mux           *http.ServeMux
	authHandlers  *auth.Handlers
	healthHandler *health.Handler
	metrics       *metrics.Metrics
}

func NewRouter(authHandlers *auth.Handlers, healthHandler *health.Handler, m *metrics.Metrics) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		authHandlers:  authHandlers,
		healthHandler: healthHandler,
		metrics:       m,
	}
	r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) setupRoutes() {
	// Health and observability
	r.mux.HandleFunc("GET /health", r.healthHandler.HealthHandler)
	r.mux.HandleFunc("GET /health/live", r.healthHandler.LivenessHandler)
	r.mux.HandleFunc("GET /health/ready", r.healthHandler.ReadinessHandler)
	r.mux.HandleFunc("GET /metrics", r.metrics.Handler())

	// Auth routes (no auth required)
	r.handle("POST /api/auth/register", "register", r.authHandlers.Register)
	r.handle("POST /api/auth/login", "login", r.authHandlers.Login)
	r.handle("POST /api/auth/logout", "logout", r.authHandlers.Logout)
	r.handle("GET /api/auth/me", "me", r.authHandlers.Me)
	r.handle("POST /api/auth/forgot-password", "forgot_password", r.authHandlers.ForgotPassword)
	r.handle("POST /api/auth/reset-password", "reset_password", r.authHandlers.ResetPassword)

	// Admin routes (auth + role required)
	r.handle("GET /api/admin/stats", "admin_stats",
		r.authHandlers.RequireRole(db.RoleAdmin, r.authHandlers.AdminStats))
}

func (r *Router) handle(pattern, action string, h apperrors.Handler) {
	r.mux.HandleFunc(pattern, apperrors.HandleFunc(r.authHandlers.Instrument(action, h)))
}
