package app

import (
	"log/slog"

	"github.com/rbacgate/rbacgate/internal/auth"
	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/permgroups"
	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/roles"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/users"
)

// Repositories is the storage surface behind every service.
type Repositories struct {
	Users       users.Repository
	Roles       roles.Repository
	Permissions permissions.Repository
	Groups      permgroups.Repository
	Grants      rbac.GrantStore
}

// PostgresRepositories binds every repository to conn.
func PostgresRepositories(conn db.DBTX) Repositories {
	return Repositories{
		Users:       users.NewRepository(conn),
		Roles:       roles.NewRepository(conn),
		Permissions: permissions.NewRepository(conn),
		Groups:      permgroups.NewRepository(conn),
		Grants:      rbac.NewGrantStore(conn),
	}
}

// Handlers is the set of HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth        *auth.Handler
	Users       *users.Handler
	Roles       *roles.Handler
	Permissions *permissions.Handler
	Groups      *permgroups.Handler
	RBAC        rbac.Middleware
}

// BuildHandlers constructs services and handlers over repos.
func BuildHandlers(cfg *Config, logger *slog.Logger, repos Repositories, sessions *shared.SessionManager, metrics *observability.Metrics) Handlers {
	cost := credential.DefaultCost
	enforce, requireActive := false, false
	if cfg != nil {
		cost = cfg.BcryptCost
		enforce = cfg.RBACEnforcePermissions
		requireActive = cfg.RBACRequireActiveRole
	}
	hasher := credential.NewBcryptHasher(cost)

	userService := users.NewService(repos.Users, hasher)
	rbacService := rbac.NewService(repos.Grants, requireActive)
	middleware := rbac.Middleware{
		Service:    rbacService,
		Identities: userService,
		Sessions:   sessions,
		Logger:     logger,
		Metrics:    metrics,
		Enforce:    enforce,
	}
	authService := auth.NewService(userService, hasher, sessions, rbacService, metrics)

	return Handlers{
		Auth:        auth.NewHandler(logger, authService, sessions, middleware),
		Users:       users.NewHandler(logger, userService, middleware),
		Roles:       roles.NewHandler(logger, roles.NewService(repos.Roles), middleware),
		Permissions: permissions.NewHandler(logger, permissions.NewService(repos.Permissions), middleware),
		Groups:      permgroups.NewHandler(logger, permgroups.NewService(repos.Groups), middleware),
		RBAC:        middleware,
	}
}
