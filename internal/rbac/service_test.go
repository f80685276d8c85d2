package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/roles"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/testing/memstore"
)

// seedRole creates a role granted the named permissions.
func seedRole(t *testing.T, store *memstore.Store, name string, perms ...string) roles.Role {
	t.Helper()
	ctx := context.Background()
	roleSvc := roles.NewService(store.Roles())
	permSvc := permissions.NewService(store.Permissions())
	role, err := roleSvc.Create(ctx, roles.CreateInput{Name: name})
	require.NoError(t, err)
	for _, p := range perms {
		perm, err := permSvc.Create(ctx, permissions.CreateInput{Name: p})
		if errors.Is(err, shared.ErrConflict) {
			list, lerr := permSvc.List(ctx)
			require.NoError(t, lerr)
			for _, existing := range list {
				if existing.Name == p {
					perm = existing
				}
			}
		} else {
			require.NoError(t, err)
		}
		_, err = roleSvc.Grant(ctx, roles.GrantInput{RoleID: role.ID, PermissionID: perm.ID})
		require.NoError(t, err)
	}
	return role
}

func TestHasPermission(t *testing.T) {
	store := memstore.New()
	editor := seedRole(t, store, "editor", "users:read", "users:write")
	viewer := seedRole(t, store, "viewer", "users:read")
	svc := rbac.NewService(store.Grants(), true)
	ctx := context.Background()

	cases := []struct {
		name   string
		roleID string
		perm   string
		want   bool
	}{
		{"granted", editor.ID, "users:write", true},
		{"other role lacks it", viewer.ID, "users:write", false},
		{"shared permission", viewer.ID, "users:read", true},
		{"unknown permission", editor.ID, "roles:delete", false},
		{"empty permission", editor.ID, "", false},
		{"empty role", "", "users:read", false},
		{"malformed role", "not-a-uuid", "users:read", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.HasPermission(ctx, tc.roleID, tc.perm)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInactiveRoleGrantsNothingWhenRequired(t *testing.T) {
	store := memstore.New()
	role := seedRole(t, store, "editor", "users:read")
	ctx := context.Background()
	_, err := roles.NewService(store.Roles()).Update(ctx, role.ID, roles.UpdateInput{IsActive: shared.Some(false)})
	require.NoError(t, err)

	strict := rbac.NewService(store.Grants(), true)
	got, err := strict.HasPermission(ctx, role.ID, "users:read")
	require.NoError(t, err)
	assert.False(t, got)
	names, err := strict.EffectivePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	lenient := rbac.NewService(store.Grants(), false)
	got, err = lenient.HasPermission(ctx, role.ID, "users:read")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEffectivePermissionsSorted(t *testing.T) {
	store := memstore.New()
	role := seedRole(t, store, "editor", "users:write", "roles:read", "users:read")
	svc := rbac.NewService(store.Grants(), true)

	names, err := svc.EffectivePermissions(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"roles:read", "users:read", "users:write"}, names)

	names, err = svc.EffectivePermissions(context.Background(), "bogus")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestHasAny(t *testing.T) {
	store := memstore.New()
	role := seedRole(t, store, "viewer", "users:read")
	svc := rbac.NewService(store.Grants(), true)
	ctx := context.Background()

	ok, err := svc.HasAny(ctx, role.ID, []string{"users:write", "users:read"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasAny(ctx, role.ID, []string{"users:write"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasAny(ctx, role.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGrantRevocationTakesEffectImmediately(t *testing.T) {
	store := memstore.New()
	role := seedRole(t, store, "editor", "users:write")
	svc := rbac.NewService(store.Grants(), true)
	ctx := context.Background()

	perms, err := permissions.NewService(store.Permissions()).List(ctx)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.NoError(t, roles.NewService(store.Roles()).Revoke(ctx, role.ID, perms[0].ID))

	got, err := svc.HasPermission(ctx, role.ID, "users:write")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestStoreFailurePropagates(t *testing.T) {
	store := memstore.New()
	role := seedRole(t, store, "editor", "users:read")
	svc := rbac.NewService(store.Grants(), true)
	store.Fail(errors.New("connection reset"))

	_, err := svc.HasPermission(context.Background(), role.ID, "users:read")
	require.ErrorIs(t, err, shared.ErrStore)
	_, err = svc.EffectivePermissions(context.Background(), role.ID)
	require.ErrorIs(t, err, shared.ErrStore)
}
