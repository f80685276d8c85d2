package permissions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/testing/pgfake"
)

func TestRepositoryConstraintRaces(t *testing.T) {
	ctx := context.Background()
	in := permissions.NewPermission{ID: missingID, Name: "users:read"}

	_, err := permissions.NewRepository(pgfake.Violation("23505", "permissions_name_key")).Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = permissions.NewRepository(pgfake.Violation("23503", "permissions_permission_group_id_fkey")).Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
