package rbac

import (
	"context"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Service decides whether a role grants a permission. Every call goes to
// the store; nothing is cached.
type Service struct {
	store             GrantStore
	requireActiveRole bool
}

// NewService constructs a Service. With requireActiveRole, grants held by a
// deactivated role stop counting.
func NewService(store GrantStore, requireActiveRole bool) *Service {
	return &Service{store: store, requireActiveRole: requireActiveRole}
}

// HasPermission reports whether roleID is granted the permission called name.
// An empty or malformed role id grants nothing.
func (s *Service) HasPermission(ctx context.Context, roleID, name string) (bool, error) {
	if name == "" || shared.ValidateID("role_id", roleID) != nil {
		return false, nil
	}
	count, err := s.store.CountGrants(ctx, roleID, name, s.requireActiveRole)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EffectivePermissions lists the permission names granted to roleID.
func (s *Service) EffectivePermissions(ctx context.Context, roleID string) ([]string, error) {
	if shared.ValidateID("role_id", roleID) != nil {
		return []string{}, nil
	}
	return s.store.GrantedNames(ctx, roleID, s.requireActiveRole)
}

// HasAny reports whether roleID holds at least one of names.
func (s *Service) HasAny(ctx context.Context, roleID string, names []string) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}
	granted, err := s.EffectivePermissions(ctx, roleID)
	if err != nil {
		return false, err
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, n := range names {
		if _, ok := set[n]; ok {
			return true, nil
		}
	}
	return false, nil
}
