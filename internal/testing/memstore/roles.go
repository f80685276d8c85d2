package memstore

import (
	"context"
	"time"

	"github.com/rbacgate/rbacgate/internal/roles"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Roles implements roles.Repository.
type Roles struct{ s *Store }

func copyRole(r roles.Role) roles.Role {
	r.Description = clone(r.Description)
	return r
}

func (v *Roles) List(ctx context.Context) ([]roles.Role, error) {
	done, err := v.s.begin("roles: list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]roles.Role, 0, len(v.s.roles))
	for _, r := range v.s.roles {
		out = append(out, copyRole(r))
	}
	newestFirst(out, func(r roles.Role) time.Time { return r.CreatedAt }, func(r roles.Role) string { return r.ID })
	return out, nil
}

func (v *Roles) FindByID(ctx context.Context, id string) (roles.Role, bool, error) {
	done, err := v.s.begin("roles: find by id")
	if err != nil {
		return roles.Role{}, false, err
	}
	defer done()
	r, ok := v.s.roles[id]
	return copyRole(r), ok, nil
}

func (v *Roles) FindByName(ctx context.Context, name string) (roles.Role, bool, error) {
	done, err := v.s.begin("roles: find by name")
	if err != nil {
		return roles.Role{}, false, err
	}
	defer done()
	for _, r := range v.s.roles {
		if r.Name == name {
			return copyRole(r), true, nil
		}
	}
	return roles.Role{}, false, nil
}

func (v *Roles) Create(ctx context.Context, in roles.NewRole) (roles.Role, error) {
	done, err := v.s.begin("roles: create")
	if err != nil {
		return roles.Role{}, err
	}
	defer done()
	if v.nameTaken("", in.Name) {
		return roles.Role{}, shared.Conflict("role name already exists")
	}
	now := v.s.tick()
	r := roles.Role{
		ID:          in.ID,
		Name:        in.Name,
		Description: clone(in.Description),
		IsActive:    in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	v.s.roles[r.ID] = r
	return copyRole(r), nil
}

func (v *Roles) Update(ctx context.Context, id string, patch roles.Patch) (roles.Role, bool, error) {
	done, err := v.s.begin("roles: update")
	if err != nil {
		return roles.Role{}, false, err
	}
	defer done()
	r, ok := v.s.roles[id]
	if !ok {
		return roles.Role{}, false, nil
	}
	if patch.Empty() {
		return copyRole(r), true, nil
	}
	if patch.Name.Set {
		if v.nameTaken(id, patch.Name.Value) {
			return roles.Role{}, false, shared.Conflict("role name already exists")
		}
		r.Name = patch.Name.Value
	}
	if patch.Description.Set {
		r.Description = clone(patch.Description.Value)
	}
	if patch.IsActive.Set {
		r.IsActive = patch.IsActive.Value
	}
	r.UpdatedAt = v.s.tick()
	v.s.roles[id] = r
	return copyRole(r), true, nil
}

func (v *Roles) Delete(ctx context.Context, id string) (bool, error) {
	done, err := v.s.begin("roles: delete")
	if err != nil {
		return false, err
	}
	defer done()
	if _, ok := v.s.roles[id]; !ok {
		return false, nil
	}
	delete(v.s.roles, id)
	for k := range v.s.grants {
		if k.a == id {
			delete(v.s.grants, k)
		}
	}
	for uid, u := range v.s.users {
		if u.RoleID != nil && *u.RoleID == id {
			u.RoleID = nil
			v.s.users[uid] = u
		}
	}
	return true, nil
}

func (v *Roles) ListPermissions(ctx context.Context, roleID string) ([]roles.GrantedPermission, error) {
	done, err := v.s.begin("roles: list permissions")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]roles.GrantedPermission, 0)
	for k, g := range v.s.grants {
		if k.a != roleID {
			continue
		}
		p := v.s.perms[k.b]
		out = append(out, roles.GrantedPermission{
			ID:                p.ID,
			Name:              p.Name,
			Description:       clone(p.Description),
			PermissionGroupID: clone(p.PermissionGroupID),
			GrantedAt:         g.CreatedAt,
		})
	}
	newestFirst(out, func(p roles.GrantedPermission) time.Time { return p.GrantedAt }, func(p roles.GrantedPermission) string { return p.Name })
	return out, nil
}

func (v *Roles) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	done, err := v.s.begin("roles: permission exists")
	if err != nil {
		return false, err
	}
	defer done()
	_, ok := v.s.perms[permissionID]
	return ok, nil
}

func (v *Roles) CreateGrant(ctx context.Context, g roles.Grant) (roles.Grant, error) {
	done, err := v.s.begin("roles: create grant")
	if err != nil {
		return roles.Grant{}, err
	}
	defer done()
	_, roleOK := v.s.roles[g.RoleID]
	_, permOK := v.s.perms[g.PermissionID]
	if !roleOK || !permOK {
		return roles.Grant{}, shared.NotFound("role or permission not found")
	}
	k := pair{g.RoleID, g.PermissionID}
	if _, dup := v.s.grants[k]; dup {
		return roles.Grant{}, shared.Conflict("role permission already exists")
	}
	g.CreatedAt = v.s.tick()
	v.s.grants[k] = g
	return g, nil
}

func (v *Roles) DeleteGrant(ctx context.Context, roleID, permissionID string) (bool, error) {
	done, err := v.s.begin("roles: delete grant")
	if err != nil {
		return false, err
	}
	defer done()
	k := pair{roleID, permissionID}
	if _, ok := v.s.grants[k]; !ok {
		return false, nil
	}
	delete(v.s.grants, k)
	return true, nil
}

func (v *Roles) nameTaken(selfID, name string) bool {
	for id, r := range v.s.roles {
		if id != selfID && r.Name == name {
			return true
		}
	}
	return false
}

var _ roles.Repository = (*Roles)(nil)
