package users

import (
	"time"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// User represents an account. PasswordHash never leaves the process.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       *string    `json:"role_id"`
	RoleName     *string    `json:"role_name"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser is a row ready for insertion.
type NewUser struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	RoleID       *string
	IsActive     bool
}

// Patch is the field mask of a user update.
type Patch struct {
	Username     shared.Field[string]
	Email        shared.Field[string]
	PasswordHash shared.Field[string]
	RoleID       shared.Field[*string]
	IsActive     shared.Field[bool]
}

// Empty reports whether the patch touches no column.
func (p Patch) Empty() bool {
	return !p.Username.Set && !p.Email.Set && !p.PasswordHash.Set && !p.RoleID.Set && !p.IsActive.Set
}

// CreateInput is the payload of an account creation. Exactly one of
// Password or PasswordHash is expected; Password wins when both are given.
type CreateInput struct {
	Username     string  `json:"username" validate:"required,min=3,max=255"`
	Email        string  `json:"email" validate:"required,email,max=255"`
	Password     string  `json:"password" validate:"omitempty,min=6,maxbytes=72"`
	PasswordHash string  `json:"password_hash"`
	RoleID       *string `json:"role_id" validate:"omitempty,uuid"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateInput is the payload of an account update. Absent keys are left
// untouched; "role_id": null clears the role.
type UpdateInput struct {
	Username shared.Field[string]  `json:"username"`
	Email    shared.Field[string]  `json:"email"`
	Password shared.Field[string]  `json:"password"`
	RoleID   shared.Field[*string] `json:"role_id"`
	IsActive shared.Field[bool]    `json:"is_active"`
}
