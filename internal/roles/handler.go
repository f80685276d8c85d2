package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rbacgate/rbacgate/internal/platform/httpx"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Permission(shared.PermRolesRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/permissions", h.permissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Permission(shared.PermRolesWrite))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

// MountGrantRoutes registers the role-permission link routes.
func (h *Handler) MountGrantRoutes(r chi.Router) {
	r.Use(h.rbac.Permission(shared.PermRolesWrite))
	r.Post("/", h.grant)
	r.Delete("/{roleID}/{permissionID}", h.revoke)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, "list roles failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	role, perms, err := h.service.GetWithPermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "get role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.service.GetWithPermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "list role permissions failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "create role failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Role created successfully", "role": role})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Role updated successfully", "role": role})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, r, h.logger, "delete role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Role deleted successfully"})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var in GrantInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	grant, err := h.service.Grant(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "grant permission failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Role permission created successfully", "role_permission": grant})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	err := h.service.Revoke(r.Context(), chi.URLParam(r, "roleID"), chi.URLParam(r, "permissionID"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "revoke permission failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Role permission removed successfully"})
}
