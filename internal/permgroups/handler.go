package permgroups

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rbacgate/rbacgate/internal/platform/httpx"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Handler manages permission group endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission group routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Permission(shared.PermPermissionsRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/permissions", h.permissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Permission(shared.PermPermissionsWrite))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

// MountMappingRoutes registers the group-permission mapping routes.
func (h *Handler) MountMappingRoutes(r chi.Router) {
	r.Use(h.rbac.Permission(shared.PermPermissionsWrite))
	r.Post("/", h.mapPermission)
	r.Delete("/{groupID}/{permissionID}", h.unmapPermission)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, "list permission groups failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permission_groups": groups})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	g, perms, err := h.service.GetWithPermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "get permission group failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permission_group": g, "permissions": perms})
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.service.GetWithPermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "list group permissions failed", err)
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
	g, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "create permission group failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Permission group created successfully", "permission_group": g})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update permission group failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Permission group updated successfully", "permission_group": g})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, r, h.logger, "delete permission group failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Permission group deleted successfully"})
}

func (h *Handler) mapPermission(w http.ResponseWriter, r *http.Request) {
	var in MappingInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Map(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "map permission failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Group permission mapping created successfully", "mapping": m})
}

func (h *Handler) unmapPermission(w http.ResponseWriter, r *http.Request) {
	err := h.service.Unmap(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "permissionID"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "unmap permission failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Group permission mapping removed successfully"})
}
