package permissions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/permgroups"
	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/testing/memstore"
)

const missingID = "00000000-0000-4000-8000-000000000000"

func setup(t *testing.T) (*permissions.Service, *permgroups.Service) {
	t.Helper()
	store := memstore.New()
	return permissions.NewService(store.Permissions()), permgroups.NewService(store.Groups())
}

func TestCreatePermissionWithGroup(t *testing.T) {
	svc, groups := setup(t)
	ctx := context.Background()
	group, err := groups.Create(ctx, permgroups.CreateInput{Name: "User management"})
	require.NoError(t, err)

	p, err := svc.Create(ctx, permissions.CreateInput{Name: "users:read", PermissionGroupID: &group.ID})
	require.NoError(t, err)
	require.NotNil(t, p.PermissionGroupID)
	assert.Equal(t, group.ID, *p.PermissionGroupID)
	require.NotNil(t, p.PermissionGroupName)
	assert.Equal(t, "User management", *p.PermissionGroupName)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "users:read", got.Name)
}

func TestCreatePermissionErrors(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, permissions.CreateInput{Name: ""})
	require.ErrorIs(t, err, shared.ErrValidation)

	bad := "nope"
	_, err = svc.Create(ctx, permissions.CreateInput{Name: "users:read", PermissionGroupID: &bad})
	require.ErrorIs(t, err, shared.ErrValidation)

	missing := missingID
	_, err = svc.Create(ctx, permissions.CreateInput{Name: "users:read", PermissionGroupID: &missing})
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, "permission group not found", err.Error())

	_, err = svc.Create(ctx, permissions.CreateInput{Name: "users:read"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, permissions.CreateInput{Name: "users:read"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdatePermissionGroupMembership(t *testing.T) {
	svc, groups := setup(t)
	ctx := context.Background()
	group, err := groups.Create(ctx, permgroups.CreateInput{Name: "Users"})
	require.NoError(t, err)
	p, err := svc.Create(ctx, permissions.CreateInput{Name: "users:read"})
	require.NoError(t, err)

	moved, err := svc.Update(ctx, p.ID, permissions.UpdateInput{PermissionGroupID: shared.Some(&group.ID)})
	require.NoError(t, err)
	require.NotNil(t, moved.PermissionGroupID)

	cleared, err := svc.Update(ctx, p.ID, permissions.UpdateInput{PermissionGroupID: shared.Some[*string](nil)})
	require.NoError(t, err)
	assert.Nil(t, cleared.PermissionGroupID)
	assert.Nil(t, cleared.PermissionGroupName)

	renamed, err := svc.Update(ctx, p.ID, permissions.UpdateInput{Name: shared.Some("users:list")})
	require.NoError(t, err)
	assert.Equal(t, "users:list", renamed.Name)

	_, err = svc.Update(ctx, missingID, permissions.UpdateInput{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteGroupClearsPermissionGroup(t *testing.T) {
	svc, groups := setup(t)
	ctx := context.Background()
	group, err := groups.Create(ctx, permgroups.CreateInput{Name: "Users"})
	require.NoError(t, err)
	p, err := svc.Create(ctx, permissions.CreateInput{Name: "users:read", PermissionGroupID: &group.ID})
	require.NoError(t, err)

	require.NoError(t, groups.Delete(ctx, group.ID))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PermissionGroupID)
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	for _, name := range []string{"a:read", "b:read", "c:read"} {
		_, err := svc.Create(ctx, permissions.CreateInput{Name: name})
		require.NoError(t, err)
	}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c:read", list[0].Name)
	assert.Equal(t, "a:read", list[2].Name)
}

func TestDeletePermission(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, permissions.CreateInput{Name: "users:read"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID))
	require.ErrorIs(t, svc.Delete(ctx, p.ID), shared.ErrNotFound)
}

func TestUpdateMissingPermissionWithTakenName(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, permissions.CreateInput{Name: "users:read"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, missingID, permissions.UpdateInput{Name: shared.Some("users:read")})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Update(ctx, missingID, permissions.UpdateInput{Name: shared.Field[string]{Set: true, Null: true}})
	require.ErrorIs(t, err, shared.ErrValidation)
}
