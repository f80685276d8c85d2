package memstore

import (
	"context"
	"sort"

	"github.com/rbacgate/rbacgate/internal/rbac"
)

// Grants implements rbac.GrantStore.
type Grants struct{ s *Store }

func (v *Grants) CountGrants(ctx context.Context, roleID, name string, activeOnly bool) (int64, error) {
	done, err := v.s.begin("rbac: count grants")
	if err != nil {
		return 0, err
	}
	defer done()
	if activeOnly && !v.activeRole(roleID) {
		return 0, nil
	}
	var count int64
	for k := range v.s.grants {
		if k.a == roleID && v.s.perms[k.b].Name == name {
			count++
		}
	}
	return count, nil
}

func (v *Grants) GrantedNames(ctx context.Context, roleID string, activeOnly bool) ([]string, error) {
	done, err := v.s.begin("rbac: granted names")
	if err != nil {
		return nil, err
	}
	defer done()
	names := make([]string, 0)
	if activeOnly && !v.activeRole(roleID) {
		return names, nil
	}
	for k := range v.s.grants {
		if k.a == roleID {
			names = append(names, v.s.perms[k.b].Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (v *Grants) activeRole(roleID string) bool {
	r, ok := v.s.roles[roleID]
	return ok && r.IsActive
}

var _ rbac.GrantStore = (*Grants)(nil)
