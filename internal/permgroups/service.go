package permgroups

import (
	"context"

	"github.com/google/uuid"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Service handles permission group business logic.
type Service struct {
	repo      Repository
	validator *shared.Validator
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// List returns all groups, newest first.
func (s *Service) List(ctx context.Context) ([]Group, error) {
	return s.repo.List(ctx)
}

// Get returns a group or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Group, error) {
	if shared.ValidateID("id", id) != nil {
		return Group{}, shared.NotFound("permission group not found")
	}
	g, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if !found {
		return Group{}, shared.NotFound("permission group not found")
	}
	return g, nil
}

// GetWithPermissions returns a group together with its mapped permissions.
func (s *Service) GetWithPermissions(ctx context.Context, id string) (Group, []MappedPermission, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Group{}, nil, err
	}
	perms, err := s.repo.ListPermissions(ctx, g.ID)
	if err != nil {
		return Group{}, nil, err
	}
	return g, perms, nil
}

// Create stores a new group.
func (s *Service) Create(ctx context.Context, in CreateInput) (Group, error) {
	in.Name = shared.NormalizeText(in.Name)
	in.Description = shared.NormalizeOptional(in.Description)
	if err := s.validator.Struct(in); err != nil {
		return Group{}, err
	}
	if err := s.checkName(ctx, "", in.Name); err != nil {
		return Group{}, err
	}
	return s.repo.Create(ctx, NewGroup{ID: uuid.NewString(), Name: in.Name, Description: in.Description})
}

// Update applies the fields present in in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Group, error) {
	if shared.ValidateID("id", id) != nil {
		return Group{}, shared.NotFound("permission group not found")
	}
	if err := in.Name.NotNull("name"); err != nil {
		return Group{}, err
	}
	var patch Patch
	if in.Name.Set {
		v := shared.NormalizeText(in.Name.Value)
		if err := s.validator.Var("name", v, "required,max=255"); err != nil {
			return Group{}, err
		}
		patch.Name = shared.Some(v)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Group{}, err
	}
	if patch.Name.Set {
		if err := s.checkName(ctx, id, patch.Name.Value); err != nil {
			return Group{}, err
		}
	}
	if in.Description.Set {
		patch.Description = shared.Some(shared.NormalizeOptional(in.Description.Value))
	}
	g, found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Group{}, err
	}
	if !found {
		return Group{}, shared.NotFound("permission group not found")
	}
	return g, nil
}

// Delete removes a group or reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if shared.ValidateID("id", id) != nil {
		return shared.NotFound("permission group not found")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFound("permission group not found")
	}
	return nil
}

// Map adds a permission to a group. Both must exist.
func (s *Service) Map(ctx context.Context, in MappingInput) (Mapping, error) {
	in.PermissionGroupID = shared.NormalizeText(in.PermissionGroupID)
	in.PermissionID = shared.NormalizeText(in.PermissionID)
	if err := s.validator.Struct(in); err != nil {
		return Mapping{}, err
	}
	if _, found, err := s.repo.FindByID(ctx, in.PermissionGroupID); err != nil {
		return Mapping{}, err
	} else if !found {
		return Mapping{}, shared.NotFound("permission group not found")
	}
	exists, err := s.repo.PermissionExists(ctx, in.PermissionID)
	if err != nil {
		return Mapping{}, err
	}
	if !exists {
		return Mapping{}, shared.NotFound("permission not found")
	}
	return s.repo.CreateMapping(ctx, Mapping{
		ID:                uuid.NewString(),
		PermissionGroupID: in.PermissionGroupID,
		PermissionID:      in.PermissionID,
	})
}

// Unmap removes a mapping or reports ErrNotFound.
func (s *Service) Unmap(ctx context.Context, groupID, permissionID string) error {
	if shared.ValidateID("permission_group_id", groupID) != nil || shared.ValidateID("permission_id", permissionID) != nil {
		return shared.NotFound("group permission mapping not found")
	}
	deleted, err := s.repo.DeleteMapping(ctx, groupID, permissionID)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFound("group permission mapping not found")
	}
	return nil
}

func (s *Service) checkName(ctx context.Context, selfID, name string) error {
	other, found, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if found && other.ID != selfID {
		return shared.Conflict("permission group name already exists")
	}
	return nil
}
