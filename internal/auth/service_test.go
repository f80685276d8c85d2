package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/auth"
	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/roles"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/testing/memstore"
	"github.com/rbacgate/rbacgate/internal/users"
)

type fixture struct {
	store    *memstore.Store
	users    *users.Service
	sessions *shared.SessionManager
	metrics  *observability.Metrics
	auth     *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	hasher := credential.NewBcryptHasher(4)
	userSvc := users.NewService(store.Users(), hasher)
	sessions := shared.NewSessionManager(store.Sessions(), shared.CookieOptions{HTTPOnly: true}, "test-secret", time.Hour)
	metrics := observability.NewMetrics()
	return &fixture{
		store:    store,
		users:    userSvc,
		sessions: sessions,
		metrics:  metrics,
		auth:     auth.NewService(userSvc, hasher, sessions, rbac.NewService(store.Grants(), true), metrics),
	}
}

func (f *fixture) register(t *testing.T, username string) users.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), auth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsActive)

	_, err := f.auth.Register(context.Background(), auth.RegisterInput{Username: "bob", Email: "bob@example.com"})
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["password"])

	_, err = f.auth.Register(context.Background(), auth.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "12345"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.auth.Register(context.Background(), auth.RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret1"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRegisterBoundsPasswordInBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, auth.RegisterInput{Username: "bob", Email: "bob@example.com", Password: strings.Repeat("é", 40)})
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at most 72 bytes long", verr.Fields["password"])

	u, err := f.auth.Register(ctx, auth.RegisterInput{Username: "bob", Email: "bob@example.com", Password: strings.Repeat("é", 36)})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
}

type brokenLastLogin struct {
	*memstore.Users
}

func (brokenLastLogin) TouchLastLogin(context.Context, string, time.Time) error {
	return shared.StoreError("users: touch last login", errors.New("connection reset"))
}

func TestLoginDropsSessionWhenLastLoginFails(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	hasher := credential.NewBcryptHasher(4)
	userSvc := users.NewService(brokenLastLogin{f.store.Users()}, hasher)
	svc := auth.NewService(userSvc, hasher, f.sessions, rbac.NewService(f.store.Grants(), true), f.metrics)

	_, sess, err := svc.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "secret1"}, shared.SessionMeta{}, "")
	require.ErrorIs(t, err, shared.ErrStore)
	assert.Nil(t, sess)
	assert.Equal(t, 0, f.store.Sessions().Len())
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "alice")
	ctx := context.Background()

	u, sess, err := f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "secret1"}, shared.SessionMeta{IP: "10.0.0.1"}, "")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, registered.ID, u.ID)
	assert.Equal(t, registered.ID, sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, "10.0.0.1", sess.IP)

	stored, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
	assert.Contains(t, scrape(t, f.metrics), `rbacgate_logins_total{outcome="success"} 1`)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	ctx := context.Background()

	_, _, err := f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "wrong-password"}, shared.SessionMeta{}, "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, auth.LoginInput{Username: "nobody", Password: "secret1"}, shared.SessionMeta{}, "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, auth.LoginInput{Username: "alice"}, shared.SessionMeta{}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	assert.Equal(t, 0, f.store.Sessions().Len())
}

func TestInactiveAccountOnlyRevealedWithCorrectPassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")
	ctx := context.Background()
	_, err := f.users.Update(ctx, u.ID, users.UpdateInput{IsActive: shared.Some(false)})
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "wrong-password"}, shared.SessionMeta{}, "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "secret1"}, shared.SessionMeta{}, "")
	require.ErrorIs(t, err, shared.ErrAccountInactive)
	assert.Equal(t, 0, f.store.Sessions().Len())
}

func TestLoginDestroysPreviousSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	ctx := context.Background()

	_, first, err := f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "secret1"}, shared.SessionMeta{}, "")
	require.NoError(t, err)
	_, second, err := f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "secret1"}, shared.SessionMeta{}, first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, found, err := f.sessions.Resolve(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = f.sessions.Resolve(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	ctx := context.Background()
	_, sess, err := f.auth.Login(ctx, auth.LoginInput{Username: "alice", Password: "secret1"}, shared.SessionMeta{}, "")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, sess.ID))
	require.NoError(t, f.auth.Logout(ctx, sess.ID))
	assert.Equal(t, 0, f.store.Sessions().Len())
}

func TestMeAndPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	role, err := roles.NewService(f.store.Roles()).Create(ctx, roles.CreateInput{Name: "editor"})
	require.NoError(t, err)
	perm, err := permissions.NewService(f.store.Permissions()).Create(ctx, permissions.CreateInput{Name: "users:read"})
	require.NoError(t, err)
	_, err = roles.NewService(f.store.Roles()).Grant(ctx, roles.GrantInput{RoleID: role.ID, PermissionID: perm.ID})
	require.NoError(t, err)

	u, err := f.auth.Register(ctx, auth.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1", RoleID: &role.ID})
	require.NoError(t, err)

	me, err := f.auth.Me(ctx, shared.Principal{UserID: u.ID})
	require.NoError(t, err)
	require.NotNil(t, me.RoleName)
	assert.Equal(t, "editor", *me.RoleName)

	names, err := f.auth.Permissions(ctx, shared.Principal{UserID: u.ID, RoleID: &role.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"users:read"}, names)

	names, err = f.auth.Permissions(ctx, shared.Principal{UserID: u.ID})
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)
}
