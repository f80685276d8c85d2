// Package bootstrap seeds a fresh installation with an administrator account
// that holds every built-in permission.
package bootstrap

import (
	"context"
	"errors"

	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/roles"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/users"
)

// AdminRoleName is the role created (or reused) for the first administrator.
const AdminRoleName = "admin"

// Admin is the account to create.
type Admin struct {
	Username string
	Email    string
	Password string
}

// Result reports what the seed produced.
type Result struct {
	Role        roles.Role
	Permissions []permissions.Permission
	User        users.User
	// CreatedGrants counts grants added by this run; rerunning is idempotent
	// for the role and catalog.
	CreatedGrants int
}

// Seeder runs the seed against one set of repositories, normally bound to a
// single transaction.
type Seeder struct {
	Roles       roles.Repository
	Permissions permissions.Repository
	Users       users.Repository
	Hasher      credential.Hasher
}

// Run creates the admin role, the built-in permission catalog, grants all of
// it to the role and creates the admin user. An existing role or permission
// with the same name is reused; an existing username or email is a conflict.
func (s Seeder) Run(ctx context.Context, admin Admin) (Result, error) {
	if admin.Password == "" {
		return Result{}, shared.NewValidationError("password", "is required")
	}
	roleSvc := roles.NewService(s.Roles)
	permSvc := permissions.NewService(s.Permissions)
	userSvc := users.NewService(s.Users, s.Hasher)

	role, err := s.ensureRole(ctx, roleSvc)
	if err != nil {
		return Result{}, err
	}
	res := Result{Role: role}

	granted, err := s.Roles.ListPermissions(ctx, role.ID)
	if err != nil {
		return Result{}, err
	}
	have := make(map[string]bool, len(granted))
	for _, g := range granted {
		have[g.ID] = true
	}

	for _, spec := range shared.CoreScopes() {
		perm, err := s.ensurePermission(ctx, permSvc, spec)
		if err != nil {
			return Result{}, err
		}
		res.Permissions = append(res.Permissions, perm)
		if have[perm.ID] {
			continue
		}
		if _, err := roleSvc.Grant(ctx, roles.GrantInput{RoleID: role.ID, PermissionID: perm.ID}); err != nil {
			return Result{}, err
		}
		res.CreatedGrants++
	}

	roleID := role.ID
	user, err := userSvc.Create(ctx, users.CreateInput{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		RoleID:   &roleID,
	})
	if err != nil {
		return Result{}, err
	}
	res.User = user
	return res, nil
}

func (s Seeder) ensureRole(ctx context.Context, svc *roles.Service) (roles.Role, error) {
	existing, found, err := s.Roles.FindByName(ctx, AdminRoleName)
	if err != nil {
		return roles.Role{}, err
	}
	if found {
		return existing, nil
	}
	desc := "Built-in administrator"
	role, err := svc.Create(ctx, roles.CreateInput{Name: AdminRoleName, Description: &desc})
	if errors.Is(err, shared.ErrConflict) {
		existing, _, err = s.Roles.FindByName(ctx, AdminRoleName)
		return existing, err
	}
	return role, err
}

func (s Seeder) ensurePermission(ctx context.Context, svc *permissions.Service, spec shared.PermissionSpec) (permissions.Permission, error) {
	existing, found, err := s.Permissions.FindByName(ctx, spec.Name)
	if err != nil {
		return permissions.Permission{}, err
	}
	if found {
		return existing, nil
	}
	desc := spec.Description
	return svc.Create(ctx, permissions.CreateInput{Name: spec.Name, Description: &desc})
}
