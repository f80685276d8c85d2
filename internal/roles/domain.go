package roles

import (
	"time"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Role is a named bundle of granted permissions.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRole is a row ready for insertion.
type NewRole struct {
	ID          string
	Name        string
	Description *string
	IsActive    bool
}

// Patch is the field mask of a role update.
type Patch struct {
	Name        shared.Field[string]
	Description shared.Field[*string]
	IsActive    shared.Field[bool]
}

// Empty reports whether the patch touches no column.
func (p Patch) Empty() bool {
	return !p.Name.Set && !p.Description.Set && !p.IsActive.Set
}

// GrantedPermission is a permission as seen through a role grant.
type GrantedPermission struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	PermissionGroupID *string   `json:"permission_group_id"`
	GrantedAt         time.Time `json:"granted_at"`
}

// Grant is a role_permissions row.
type Grant struct {
	ID           string    `json:"id"`
	RoleID       string    `json:"role_id"`
	PermissionID string    `json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateInput is the payload of a role creation.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateInput is the payload of a role update.
type UpdateInput struct {
	Name        shared.Field[string]  `json:"name"`
	Description shared.Field[*string] `json:"description"`
	IsActive    shared.Field[bool]    `json:"is_active"`
}

// GrantInput links a role to a permission.
type GrantInput struct {
	RoleID       string `json:"role_id" validate:"required,uuid"`
	PermissionID string `json:"permission_id" validate:"required,uuid"`
}
