package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/platform/httpx"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Handlers       Handlers
	Health         HealthHandler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
	// RequestLog toggles chi's request logger.
	RequestLog bool
}

// NewRouter constructs the chi.Router with rbacgate defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.RequestLog {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "NotFoundError", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	r.Method(http.MethodGet, "/health", params.Health)

	h := params.Handlers
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", h.Auth.MountRoutes)
		r.Group(func(r chi.Router) {
			r.Use(h.RBAC.RequireAuth)
			r.Route("/users", h.Users.MountRoutes)
			r.Route("/roles", h.Roles.MountRoutes)
			r.Route("/role-permissions", h.Roles.MountGrantRoutes)
			r.Route("/permissions", h.Permissions.MountRoutes)
			r.Route("/permission-groups", h.Groups.MountRoutes)
			r.Route("/group-permission-mappings", h.Groups.MountMappingRoutes)
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
