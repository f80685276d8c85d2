// Package permgroups manages permission groups, the organizational buckets
// permissions are listed under. Groups never take part in grant decisions.
package permgroups

import (
	"time"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Group is a named bucket of permissions.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGroup is a row ready for insertion.
type NewGroup struct {
	ID          string
	Name        string
	Description *string
}

// Patch is the field mask of a group update.
type Patch struct {
	Name        shared.Field[string]
	Description shared.Field[*string]
}

// Empty reports whether the patch touches no column.
func (p Patch) Empty() bool {
	return !p.Name.Set && !p.Description.Set
}

// MappedPermission is a permission as seen through a group mapping.
type MappedPermission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	MappedAt    time.Time `json:"mapped_at"`
}

// Mapping is a group_permission_mappings row.
type Mapping struct {
	ID                string    `json:"id"`
	PermissionGroupID string    `json:"permission_group_id"`
	PermissionID      string    `json:"permission_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateInput is the payload of a group creation.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateInput is the payload of a group update.
type UpdateInput struct {
	Name        shared.Field[string]  `json:"name"`
	Description shared.Field[*string] `json:"description"`
}

// MappingInput links a permission to a group.
type MappingInput struct {
	PermissionGroupID string `json:"permission_group_id" validate:"required,uuid"`
	PermissionID      string `json:"permission_id" validate:"required,uuid"`
}
