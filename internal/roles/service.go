package roles

import (
	"context"

	"github.com/google/uuid"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Service handles role business logic.
type Service struct {
	repo      Repository
	validator *shared.Validator
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// List returns all roles, newest first.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get returns a role or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Role, error) {
	if shared.ValidateID("id", id) != nil {
		return Role{}, shared.NotFound("role not found")
	}
	role, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if !found {
		return Role{}, shared.NotFound("role not found")
	}
	return role, nil
}

// GetWithPermissions returns a role together with its granted permissions.
func (s *Service) GetWithPermissions(ctx context.Context, id string) (Role, []GrantedPermission, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	perms, err := s.repo.ListPermissions(ctx, role.ID)
	if err != nil {
		return Role{}, nil, err
	}
	return role, perms, nil
}

// Create stores a new role.
func (s *Service) Create(ctx context.Context, in CreateInput) (Role, error) {
	in.Name = shared.NormalizeText(in.Name)
	in.Description = shared.NormalizeOptional(in.Description)
	if err := s.validator.Struct(in); err != nil {
		return Role{}, err
	}
	if err := s.checkName(ctx, "", in.Name); err != nil {
		return Role{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.repo.Create(ctx, NewRole{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		IsActive:    active,
	})
}

// Update applies the fields present in in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Role, error) {
	if shared.ValidateID("id", id) != nil {
		return Role{}, shared.NotFound("role not found")
	}
	if err := shared.Merge(in.Name.NotNull("name"), in.IsActive.NotNull("is_active")); err != nil {
		return Role{}, err
	}
	var patch Patch
	if in.Name.Set {
		v := shared.NormalizeText(in.Name.Value)
		if err := s.validator.Var("name", v, "required,max=255"); err != nil {
			return Role{}, err
		}
		patch.Name = shared.Some(v)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Role{}, err
	}
	if patch.Name.Set {
		if err := s.checkName(ctx, id, patch.Name.Value); err != nil {
			return Role{}, err
		}
	}
	if in.Description.Set {
		patch.Description = shared.Some(shared.NormalizeOptional(in.Description.Value))
	}
	patch.IsActive = in.IsActive

	role, found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Role{}, err
	}
	if !found {
		return Role{}, shared.NotFound("role not found")
	}
	return role, nil
}

// Delete removes a role or reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if shared.ValidateID("id", id) != nil {
		return shared.NotFound("role not found")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFound("role not found")
	}
	return nil
}

// Grant links a permission to a role. Both must exist.
func (s *Service) Grant(ctx context.Context, in GrantInput) (Grant, error) {
	in.RoleID = shared.NormalizeText(in.RoleID)
	in.PermissionID = shared.NormalizeText(in.PermissionID)
	if err := s.validator.Struct(in); err != nil {
		return Grant{}, err
	}
	if _, found, err := s.repo.FindByID(ctx, in.RoleID); err != nil {
		return Grant{}, err
	} else if !found {
		return Grant{}, shared.NotFound("role not found")
	}
	exists, err := s.repo.PermissionExists(ctx, in.PermissionID)
	if err != nil {
		return Grant{}, err
	}
	if !exists {
		return Grant{}, shared.NotFound("permission not found")
	}
	return s.repo.CreateGrant(ctx, Grant{
		ID:           uuid.NewString(),
		RoleID:       in.RoleID,
		PermissionID: in.PermissionID,
	})
}

// Revoke removes a grant or reports ErrNotFound.
func (s *Service) Revoke(ctx context.Context, roleID, permissionID string) error {
	if shared.ValidateID("role_id", roleID) != nil || shared.ValidateID("permission_id", permissionID) != nil {
		return shared.NotFound("role permission not found")
	}
	deleted, err := s.repo.DeleteGrant(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFound("role permission not found")
	}
	return nil
}

func (s *Service) checkName(ctx context.Context, selfID, name string) error {
	other, found, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if found && other.ID != selfID {
		return shared.Conflict("role name already exists")
	}
	return nil
}
