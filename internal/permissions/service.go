package permissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Service handles permission business logic.
type Service struct {
	repo      Repository
	validator *shared.Validator
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// List returns all permissions, newest first.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// Get returns a permission or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Permission, error) {
	if shared.ValidateID("id", id) != nil {
		return Permission{}, shared.NotFound("permission not found")
	}
	p, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if !found {
		return Permission{}, shared.NotFound("permission not found")
	}
	return p, nil
}

// Create stores a new permission.
func (s *Service) Create(ctx context.Context, in CreateInput) (Permission, error) {
	in.Name = shared.NormalizeText(in.Name)
	in.Description = shared.NormalizeOptional(in.Description)
	in.PermissionGroupID = shared.NormalizeOptional(in.PermissionGroupID)
	if err := s.validator.Struct(in); err != nil {
		return Permission{}, err
	}
	if err := s.checkName(ctx, "", in.Name); err != nil {
		return Permission{}, err
	}
	if err := s.checkGroup(ctx, in.PermissionGroupID); err != nil {
		return Permission{}, err
	}
	return s.repo.Create(ctx, NewPermission{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Description:       in.Description,
		PermissionGroupID: in.PermissionGroupID,
	})
}

// Update applies the fields present in in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Permission, error) {
	if shared.ValidateID("id", id) != nil {
		return Permission{}, shared.NotFound("permission not found")
	}
	if err := in.Name.NotNull("name"); err != nil {
		return Permission{}, err
	}
	var patch Patch
	if in.Name.Set {
		v := shared.NormalizeText(in.Name.Value)
		if err := s.validator.Var("name", v, "required,max=255"); err != nil {
			return Permission{}, err
		}
		patch.Name = shared.Some(v)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Permission{}, err
	}
	if patch.Name.Set {
		if err := s.checkName(ctx, id, patch.Name.Value); err != nil {
			return Permission{}, err
		}
	}
	if in.Description.Set {
		patch.Description = shared.Some(shared.NormalizeOptional(in.Description.Value))
	}
	if in.PermissionGroupID.Set {
		v := shared.NormalizeOptional(in.PermissionGroupID.Value)
		if v != nil {
			if err := shared.ValidateID("permission_group_id", *v); err != nil {
				return Permission{}, err
			}
		}
		if err := s.checkGroup(ctx, v); err != nil {
			return Permission{}, err
		}
		patch.PermissionGroupID = shared.Some(v)
	}

	p, found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Permission{}, err
	}
	if !found {
		return Permission{}, shared.NotFound("permission not found")
	}
	return p, nil
}

// Delete removes a permission or reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if shared.ValidateID("id", id) != nil {
		return shared.NotFound("permission not found")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFound("permission not found")
	}
	return nil
}

func (s *Service) checkName(ctx context.Context, selfID, name string) error {
	other, found, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if found && other.ID != selfID {
		return shared.Conflict("permission name already exists")
	}
	return nil
}

func (s *Service) checkGroup(ctx context.Context, groupID *string) error {
	if groupID == nil {
		return nil
	}
	exists, err := s.repo.GroupExists(ctx, *groupID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NotFound("permission group not found")
	}
	return nil
}
