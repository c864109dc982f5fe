package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/principal"
	"github.com/meridian-erp/meridian-erp/internal/projects"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Authenticator    *auth.Authenticator
	AuthHandler      *auth.Handler
	RBACHandler      *rbac.Handler
	RBACMiddleware   rbac.Middleware
	PrincipalHandler *principal.Handler
	ProjectsHandler  *projects.Handler
	PlatformHandler  *tenant.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Credential endpoints stay outside the authenticated group and get a
	// tighter rate limit.
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AuthRateLimit())
			params.AuthHandler.MountPublicRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Middleware())
			params.AuthHandler.MountSessionRoutes(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(params.Authenticator.Middleware())

		r.Route("/rbac", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny("rbac.manage"))
			params.RBACHandler.MountRoutes(r)
		})

		r.Route("/principals", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny("principals.manage"))
			params.PrincipalHandler.MountRoutes(r)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny("projects.view", "projects.manage"))
			params.ProjectsHandler.MountRoutes(r)
		})

		r.Route("/platform", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequirePlatformOperator())
			params.PlatformHandler.MountRoutes(r)
		})
	})

	return r
}
