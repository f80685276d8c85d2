package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/platform/httpx"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Middleware wires authentication and RBAC authorization for HTTP handlers.
type Middleware struct {
	Service    *Service
	Identities IdentityLookup
	Sessions   *shared.SessionManager
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	// Enforce turns Permission into a real check. When false, Permission
	// only marks the route.
	Enforce bool
}

// RequireAuth admits requests carrying a live session of an active user and
// attaches the Principal. A session whose user is gone or deactivated is
// destroyed before the 401 is returned.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := shared.SessionFromContext(ctx)
		if sess == nil {
			httpx.RespondError(w, shared.Unauthenticated("authentication required"))
			return
		}
		ident, found, err := m.Identities.LookupIdentity(ctx, sess.UserID)
		if err != nil {
			httpx.Fail(w, r, m.Logger, "rbac load identity", err)
			return
		}
		if !found || !ident.IsActive {
			reason := "user_missing"
			if found {
				reason = "user_inactive"
			}
			if err := m.Sessions.Destroy(ctx, sess.ID); err != nil && m.Logger != nil {
				m.Logger.ErrorContext(ctx, "rbac destroy stale session", slog.Any("error", err))
			}
			m.Sessions.ClearCookie(w)
			m.Metrics.ObserveRevocation(reason)
			httpx.RespondError(w, shared.Unauthenticated("session is no longer valid"))
			return
		}
		principal := shared.Principal{
			UserID:   ident.ID,
			Username: ident.Username,
			Email:    ident.Email,
			RoleID:   ident.RoleID,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(ctx, principal)))
	})
}

// RequirePermission ensures the current user's role grants perm.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	perm = strings.TrimSpace(perm)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.principal(w, r)
			if !ok {
				return
			}
			granted, err := m.Service.HasPermission(r.Context(), *principal.RoleID, perm)
			if err != nil {
				httpx.Fail(w, r, m.Logger, "rbac require permission", err)
				return
			}
			m.Metrics.ObserveDecision(perm, granted)
			if !granted {
				httpx.RespondError(w, shared.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := m.principal(w, r)
			if !ok {
				return
			}
			granted, err := m.Service.HasAny(r.Context(), *principal.RoleID, normalized)
			if err != nil {
				httpx.Fail(w, r, m.Logger, "rbac require any", err)
				return
			}
			m.Metrics.ObserveDecision(strings.Join(normalized, "|"), granted)
			if !granted {
				httpx.RespondError(w, shared.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Permission gates a route on perm when enforcement is enabled and passes
// through otherwise.
func (m Middleware) Permission(perm string) func(http.Handler) http.Handler {
	if !m.Enforce {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.RequirePermission(perm)
}

// principal returns the authenticated caller with a role, writing the
// rejection itself when there is none.
func (m Middleware) principal(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("authentication required"))
		return shared.Principal{}, false
	}
	if !principal.HasRole() {
		httpx.RespondError(w, shared.Forbidden("no role assigned"))
		return shared.Principal{}, false
	}
	return principal, true
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
