package memstore

import (
	"context"
	"time"

	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Permissions implements permissions.Repository.
type Permissions struct{ s *Store }

func (v *Permissions) view(p permissions.Permission) permissions.Permission {
	p.Description = clone(p.Description)
	p.PermissionGroupID = clone(p.PermissionGroupID)
	p.PermissionGroupName = nil
	if p.PermissionGroupID != nil {
		if g, ok := v.s.groups[*p.PermissionGroupID]; ok {
			name := g.Name
			p.PermissionGroupName = &name
		}
	}
	return p
}

func (v *Permissions) List(ctx context.Context) ([]permissions.Permission, error) {
	done, err := v.s.begin("permissions: list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]permissions.Permission, 0, len(v.s.perms))
	for _, p := range v.s.perms {
		out = append(out, v.view(p))
	}
	newestFirst(out, func(p permissions.Permission) time.Time { return p.CreatedAt }, func(p permissions.Permission) string { return p.ID })
	return out, nil
}

func (v *Permissions) FindByID(ctx context.Context, id string) (permissions.Permission, bool, error) {
	done, err := v.s.begin("permissions: find by id")
	if err != nil {
		return permissions.Permission{}, false, err
	}
	defer done()
	p, ok := v.s.perms[id]
	if !ok {
		return permissions.Permission{}, false, nil
	}
	return v.view(p), true, nil
}

func (v *Permissions) FindByName(ctx context.Context, name string) (permissions.Permission, bool, error) {
	done, err := v.s.begin("permissions: find by name")
	if err != nil {
		return permissions.Permission{}, false, err
	}
	defer done()
	for _, p := range v.s.perms {
		if p.Name == name {
			return v.view(p), true, nil
		}
	}
	return permissions.Permission{}, false, nil
}

func (v *Permissions) Create(ctx context.Context, in permissions.NewPermission) (permissions.Permission, error) {
	done, err := v.s.begin("permissions: create")
	if err != nil {
		return permissions.Permission{}, err
	}
	defer done()
	if err := v.check("", in.Name, in.PermissionGroupID); err != nil {
		return permissions.Permission{}, err
	}
	now := v.s.tick()
	p := permissions.Permission{
		ID:                in.ID,
		Name:              in.Name,
		Description:       clone(in.Description),
		PermissionGroupID: clone(in.PermissionGroupID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	v.s.perms[p.ID] = p
	return v.view(p), nil
}

func (v *Permissions) Update(ctx context.Context, id string, patch permissions.Patch) (permissions.Permission, bool, error) {
	done, err := v.s.begin("permissions: update")
	if err != nil {
		return permissions.Permission{}, false, err
	}
	defer done()
	p, ok := v.s.perms[id]
	if !ok {
		return permissions.Permission{}, false, nil
	}
	if patch.Empty() {
		return v.view(p), true, nil
	}
	if patch.Name.Set {
		p.Name = patch.Name.Value
	}
	if patch.Description.Set {
		p.Description = clone(patch.Description.Value)
	}
	if patch.PermissionGroupID.Set {
		p.PermissionGroupID = clone(patch.PermissionGroupID.Value)
	}
	if err := v.check(id, p.Name, p.PermissionGroupID); err != nil {
		return permissions.Permission{}, false, err
	}
	p.UpdatedAt = v.s.tick()
	v.s.perms[id] = p
	return v.view(p), true, nil
}

func (v *Permissions) Delete(ctx context.Context, id string) (bool, error) {
	done, err := v.s.begin("permissions: delete")
	if err != nil {
		return false, err
	}
	defer done()
	if _, ok := v.s.perms[id]; !ok {
		return false, nil
	}
	delete(v.s.perms, id)
	for k := range v.s.grants {
		if k.b == id {
			delete(v.s.grants, k)
		}
	}
	for k := range v.s.mappings {
		if k.b == id {
			delete(v.s.mappings, k)
		}
	}
	return true, nil
}

func (v *Permissions) GroupExists(ctx context.Context, groupID string) (bool, error) {
	done, err := v.s.begin("permissions: group exists")
	if err != nil {
		return false, err
	}
	defer done()
	_, ok := v.s.groups[groupID]
	return ok, nil
}

func (v *Permissions) check(selfID, name string, groupID *string) error {
	for id, other := range v.s.perms {
		if id != selfID && other.Name == name {
			return shared.Conflict("permission name already exists")
		}
	}
	if groupID != nil {
		if _, ok := v.s.groups[*groupID]; !ok {
			return shared.NotFound("permission group not found")
		}
	}
	return nil
}

var _ permissions.Repository = (*Permissions)(nil)
