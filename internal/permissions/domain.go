package permissions

import (
	"time"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Permission is one named capability, such as "users:write".
type Permission struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         *string   `json:"description"`
	PermissionGroupID   *string   `json:"permission_group_id"`
	PermissionGroupName *string   `json:"permission_group_name"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewPermission is a row ready for insertion.
type NewPermission struct {
	ID                string
	Name              string
	Description       *string
	PermissionGroupID *string
}

// Patch is the field mask of a permission update.
type Patch struct {
	Name              shared.Field[string]
	Description       shared.Field[*string]
	PermissionGroupID shared.Field[*string]
}

// Empty reports whether the patch touches no column.
func (p Patch) Empty() bool {
	return !p.Name.Set && !p.Description.Set && !p.PermissionGroupID.Set
}

// CreateInput is the payload of a permission creation.
type CreateInput struct {
	Name              string  `json:"name" validate:"required,max=255"`
	Description       *string `json:"description"`
	PermissionGroupID *string `json:"permission_group_id" validate:"omitempty,uuid"`
}

// UpdateInput is the payload of a permission update.
type UpdateInput struct {
	Name              shared.Field[string]  `json:"name"`
	Description       shared.Field[*string] `json:"description"`
	PermissionGroupID shared.Field[*string] `json:"permission_group_id"`
}
