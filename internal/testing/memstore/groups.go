package memstore

import (
	"context"
	"time"

	"github.com/rbacgate/rbacgate/internal/permgroups"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Groups implements permgroups.Repository.
type Groups struct{ s *Store }

func copyGroup(g permgroups.Group) permgroups.Group {
	g.Description = clone(g.Description)
	return g
}

func (v *Groups) List(ctx context.Context) ([]permgroups.Group, error) {
	done, err := v.s.begin("permgroups: list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]permgroups.Group, 0, len(v.s.groups))
	for _, g := range v.s.groups {
		out = append(out, copyGroup(g))
	}
	newestFirst(out, func(g permgroups.Group) time.Time { return g.CreatedAt }, func(g permgroups.Group) string { return g.ID })
	return out, nil
}

func (v *Groups) FindByID(ctx context.Context, id string) (permgroups.Group, bool, error) {
	done, err := v.s.begin("permgroups: find by id")
	if err != nil {
		return permgroups.Group{}, false, err
	}
	defer done()
	g, ok := v.s.groups[id]
	return copyGroup(g), ok, nil
}

func (v *Groups) FindByName(ctx context.Context, name string) (permgroups.Group, bool, error) {
	done, err := v.s.begin("permgroups: find by name")
	if err != nil {
		return permgroups.Group{}, false, err
	}
	defer done()
	for _, g := range v.s.groups {
		if g.Name == name {
			return copyGroup(g), true, nil
		}
	}
	return permgroups.Group{}, false, nil
}

func (v *Groups) Create(ctx context.Context, in permgroups.NewGroup) (permgroups.Group, error) {
	done, err := v.s.begin("permgroups: create")
	if err != nil {
		return permgroups.Group{}, err
	}
	defer done()
	if v.nameTaken("", in.Name) {
		return permgroups.Group{}, shared.Conflict("permission group name already exists")
	}
	now := v.s.tick()
	g := permgroups.Group{ID: in.ID, Name: in.Name, Description: clone(in.Description), CreatedAt: now, UpdatedAt: now}
	v.s.groups[g.ID] = g
	return copyGroup(g), nil
}

func (v *Groups) Update(ctx context.Context, id string, patch permgroups.Patch) (permgroups.Group, bool, error) {
	done, err := v.s.begin("permgroups: update")
	if err != nil {
		return permgroups.Group{}, false, err
	}
	defer done()
	g, ok := v.s.groups[id]
	if !ok {
		return permgroups.Group{}, false, nil
	}
	if patch.Empty() {
		return copyGroup(g), true, nil
	}
	if patch.Name.Set {
		if v.nameTaken(id, patch.Name.Value) {
			return permgroups.Group{}, false, shared.Conflict("permission group name already exists")
		}
		g.Name = patch.Name.Value
	}
	if patch.Description.Set {
		g.Description = clone(patch.Description.Value)
	}
	g.UpdatedAt = v.s.tick()
	v.s.groups[id] = g
	return copyGroup(g), true, nil
}

func (v *Groups) Delete(ctx context.Context, id string) (bool, error) {
	done, err := v.s.begin("permgroups: delete")
	if err != nil {
		return false, err
	}
	defer done()
	if _, ok := v.s.groups[id]; !ok {
		return false, nil
	}
	delete(v.s.groups, id)
	for k := range v.s.mappings {
		if k.a == id {
			delete(v.s.mappings, k)
		}
	}
	for pid, p := range v.s.perms {
		if p.PermissionGroupID != nil && *p.PermissionGroupID == id {
			p.PermissionGroupID = nil
			v.s.perms[pid] = p
		}
	}
	return true, nil
}

func (v *Groups) ListPermissions(ctx context.Context, groupID string) ([]permgroups.MappedPermission, error) {
	done, err := v.s.begin("permgroups: list permissions")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]permgroups.MappedPermission, 0)
	for k, m := range v.s.mappings {
		if k.a != groupID {
			continue
		}
		p := v.s.perms[k.b]
		out = append(out, permgroups.MappedPermission{
			ID:          p.ID,
			Name:        p.Name,
			Description: clone(p.Description),
			MappedAt:    m.CreatedAt,
		})
	}
	newestFirst(out, func(p permgroups.MappedPermission) time.Time { return p.MappedAt }, func(p permgroups.MappedPermission) string { return p.Name })
	return out, nil
}

func (v *Groups) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	done, err := v.s.begin("permgroups: permission exists")
	if err != nil {
		return false, err
	}
	defer done()
	_, ok := v.s.perms[permissionID]
	return ok, nil
}

func (v *Groups) CreateMapping(ctx context.Context, m permgroups.Mapping) (permgroups.Mapping, error) {
	done, err := v.s.begin("permgroups: create mapping")
	if err != nil {
		return permgroups.Mapping{}, err
	}
	defer done()
	_, groupOK := v.s.groups[m.PermissionGroupID]
	_, permOK := v.s.perms[m.PermissionID]
	if !groupOK || !permOK {
		return permgroups.Mapping{}, shared.NotFound("permission group or permission not found")
	}
	k := pair{m.PermissionGroupID, m.PermissionID}
	if _, dup := v.s.mappings[k]; dup {
		return permgroups.Mapping{}, shared.Conflict("group permission mapping already exists")
	}
	m.CreatedAt = v.s.tick()
	v.s.mappings[k] = m
	return m, nil
}

func (v *Groups) DeleteMapping(ctx context.Context, groupID, permissionID string) (bool, error) {
	done, err := v.s.begin("permgroups: delete mapping")
	if err != nil {
		return false, err
	}
	defer done()
	k := pair{groupID, permissionID}
	if _, ok := v.s.mappings[k]; !ok {
		return false, nil
	}
	delete(v.s.mappings, k)
	return true, nil
}

func (v *Groups) nameTaken(selfID, name string) bool {
	for id, g := range v.s.groups {
		if id != selfID && g.Name == name {
			return true
		}
	}
	return false
}

var _ permgroups.Repository = (*Groups)(nil)
