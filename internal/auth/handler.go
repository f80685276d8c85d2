package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rbacgate/rbacgate/internal/platform/httpx"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	rbac           rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		rbac:           rbac,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/me", h.handleMe)
		r.Get("/me/permissions", h.handleMyPermissions)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "register failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user": user})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	previous, _ := h.sessionManager.TokenFromRequest(r)
	meta := shared.SessionMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	user, sess, err := h.service.Login(r.Context(), in, meta, previous)
	if err != nil {
		httpx.Fail(w, r, h.logger, "login failed", err)
		return
	}
	h.sessionManager.WriteCookie(w, sess)
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user": user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.sessionManager.TokenFromRequest(r); ok {
		if err := h.service.Logout(r.Context(), token); err != nil {
			httpx.Fail(w, r, h.logger, "logout failed", err)
			return
		}
	}
	h.sessionManager.ClearCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	user, err := h.service.Me(r.Context(), principal)
	if err != nil {
		httpx.Fail(w, r, h.logger, "load current user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	perms, err := h.service.Permissions(r.Context(), principal)
	if err != nil {
		httpx.Fail(w, r, h.logger, "load permissions failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}
