package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/testing/pgfake"
	"github.com/rbacgate/rbacgate/internal/users"
)

func TestRepositoryMapsConstraintViolations(t *testing.T) {
	ctx := context.Background()
	in := users.NewUser{ID: missingID, Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}

	cases := []struct {
		name    string
		conn    *pgfake.Conn
		kind    error
		message string
	}{
		{"email taken", pgfake.Violation("23505", "users_email_key"), shared.ErrConflict, "email already exists"},
		{"username taken", pgfake.Violation("23505", "users_username_key"), shared.ErrConflict, "username already exists"},
		{"role vanished", pgfake.Violation("23503", "users_role_id_fkey"), shared.ErrNotFound, "role not found"},
		{"other failure", &pgfake.Conn{Err: errors.New("connection reset")}, shared.ErrStore, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := users.NewRepository(tc.conn)

			_, err := repo.Create(ctx, in)
			require.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.message, shared.UserSafeMessage(err))

			_, found, err := repo.Update(ctx, missingID, users.Patch{Email: shared.Some("alice@example.com")})
			require.ErrorIs(t, err, tc.kind)
			assert.False(t, found)
		})
	}
}
