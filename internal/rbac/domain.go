package rbac

import "context"

// Identity is the live account state the gate re-checks on every request.
type Identity struct {
	ID       string
	Username string
	Email    string
	RoleID   *string
	IsActive bool
}

// IdentityLookup loads an account by id. Absence is reported through the
// boolean, never as an error.
type IdentityLookup interface {
	LookupIdentity(ctx context.Context, id string) (Identity, bool, error)
}

// GrantStore answers grant queries against the role_permissions table.
type GrantStore interface {
	// CountGrants counts role_permissions rows of roleID whose permission is
	// named name. With activeOnly, rows of inactive roles are ignored.
	CountGrants(ctx context.Context, roleID, name string, activeOnly bool) (int64, error)
	// GrantedNames lists the permission names granted to roleID, sorted.
	GrantedNames(ctx context.Context, roleID string, activeOnly bool) ([]string, error)
}
