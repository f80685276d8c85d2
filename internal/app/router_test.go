package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/app"
	"github.com/rbacgate/rbacgate/internal/bootstrap"
	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/testing/memstore"
)

type server struct {
	t        *testing.T
	store    *memstore.Store
	sessions *shared.SessionManager
	handler  http.Handler
}

func newServer(t *testing.T, enforce bool) *server {
	t.Helper()
	cfg := &app.Config{
		AppEnv:                 "test",
		SessionStore:           app.SessionStorePostgres,
		SessionSecret:          "router-secret",
		SessionTTL:             time.Hour,
		SessionCookieName:      "rbac_session",
		SessionCookieHTTPOnly:  true,
		SessionCookieSameSite:  "lax",
		BcryptCost:             4,
		RBACEnforcePermissions: enforce,
		RBACRequireActiveRole:  true,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	sessions := app.NewSessionManager(cfg, store.Sessions())
	metrics := observability.NewMetrics()
	repos := app.Repositories{
		Users:       store.Users(),
		Roles:       store.Roles(),
		Permissions: store.Permissions(),
		Groups:      store.Groups(),
		Grants:      store.Grants(),
	}
	handler := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		Handlers:       app.BuildHandlers(cfg, logger, repos, sessions, metrics),
		Health:         app.HealthHandler{Database: store.Sessions(), Sessions: sessions, Logger: logger},
		Metrics:        metrics,
	})
	return &server{t: t, store: store, sessions: sessions, handler: handler}
}

func (s *server) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *server) login(username, password string) *http.Cookie {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "rbac_session" {
			return c
		}
	}
	s.t.Fatal("login set no session cookie")
	return nil
}

func (s *server) register(username string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	}, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *server) seedAdmin() *http.Cookie {
	s.t.Helper()
	_, err := bootstrap.Seeder{
		Roles:       s.store.Roles(),
		Permissions: s.store.Permissions(),
		Users:       s.store.Users(),
		Hasher:      credential.NewBcryptHasher(4),
	}.Run(context.Background(), bootstrap.Admin{Username: "admin", Email: "admin@example.com", Password: "changeme"})
	require.NoError(s.t, err)
	return s.login("admin", "changeme")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newServer(t, false)

	rec := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[app.HealthStatus](t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "connected", status.Database)
	assert.Equal(t, "connected", status.Sessions)

	s.store.Fail(errors.New("down"))
	rec = s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status = decode[app.HealthStatus](t, rec)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "disconnected", status.Database)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	s := newServer(t, false)
	rec := s.do(http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSecurityHeaders(t *testing.T) {
	s := newServer(t, false)
	rec := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestManagementRoutesRequireSession(t *testing.T) {
	s := newServer(t, false)
	for _, path := range []string{"/api/users", "/api/roles", "/api/permissions", "/api/permission-groups", "/api/auth/me"} {
		rec := s.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRegisterLoginAndBrowseWithoutEnforcement(t *testing.T) {
	s := newServer(t, false)
	s.register("alice")
	cookie := s.login("alice", "secret1")

	rec := s.do(http.MethodGet, "/api/users", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Users []map[string]any `json:"users"`
	}](t, rec)
	require.Len(t, body.Users, 1)
	assert.Equal(t, "alice", body.Users[0]["username"])
	assert.NotContains(t, body.Users[0], "password_hash")

	rec = s.do(http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/users", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnforcedPermissions(t *testing.T) {
	s := newServer(t, true)
	admin := s.seedAdmin()

	s.register("bob")
	bob := s.login("bob", "secret1")
	rec := s.do(http.MethodGet, "/api/users", nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "no role assigned")

	rec = s.do(http.MethodPost, "/api/roles", map[string]string{"name": "viewer"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	viewer := decode[struct {
		Role struct {
			ID string `json:"id"`
		} `json:"role"`
	}](t, rec).Role

	rec = s.do(http.MethodGet, "/api/permissions", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	perms := decode[struct {
		Permissions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"permissions"`
	}](t, rec).Permissions
	var usersRead string
	for _, p := range perms {
		if p.Name == shared.PermUsersRead {
			usersRead = p.ID
		}
	}
	require.NotEmpty(t, usersRead)

	rec = s.do(http.MethodPost, "/api/role-permissions", map[string]string{"role_id": viewer.ID, "permission_id": usersRead}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var bobID string
	for _, u := range decode[struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	}](t, rec).Users {
		if u.Username == "bob" {
			bobID = u.ID
		}
	}
	require.NotEmpty(t, bobID)

	rec = s.do(http.MethodPut, "/api/users/"+bobID, map[string]string{"role_id": viewer.ID}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/users", nil, bob)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/api/users", map[string]string{"username": "eve", "email": "eve@example.com", "password": "secret1"}, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/auth/me/permissions", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"permissions":["users:read"]}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/role-permissions/"+viewer.ID+"/"+usersRead, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, "/api/users", nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeactivatedUserLosesSession(t *testing.T) {
	s := newServer(t, false)
	admin := s.seedAdmin()
	s.register("carol")
	carol := s.login("carol", "secret1")

	rec := s.do(http.MethodGet, "/api/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var carolID string
	for _, u := range decode[struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	}](t, rec).Users {
		if u.Username == "carol" {
			carolID = u.ID
		}
	}
	require.NotEmpty(t, carolID)

	rec = s.do(http.MethodPut, "/api/users/"+carolID, map[string]bool{"is_active": false}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/auth/me", nil, carol)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "carol", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserUpdateRejectsNullActiveFlag(t *testing.T) {
	s := newServer(t, false)
	admin := s.seedAdmin()
	s.register("dave")
	dave := s.login("dave", "secret1")

	rec := s.do(http.MethodGet, "/api/auth/me", nil, dave)
	require.Equal(t, http.StatusOK, rec.Code)
	daveID := decode[struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}](t, rec).User.ID
	require.NotEmpty(t, daveID)

	rec = s.do(http.MethodPut, "/api/users/"+daveID, map[string]any{"is_active": nil}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/auth/me", nil, dave)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterRejectsOversizedMultibytePassword(t *testing.T) {
	s := newServer(t, false)
	rec := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "erin",
		"email":    "erin@example.com",
		"password": strings.Repeat("é", 40),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestPermissionGroupRoutes(t *testing.T) {
	s := newServer(t, true)
	admin := s.seedAdmin()

	rec := s.do(http.MethodPost, "/api/permission-groups", map[string]string{"name": "Accounts"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode[struct {
		Group struct {
			ID string `json:"id"`
		} `json:"permission_group"`
	}](t, rec).Group

	rec = s.do(http.MethodPost, "/api/permissions", map[string]string{"name": "accounts:audit"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	perm := decode[struct {
		Permission struct {
			ID string `json:"id"`
		} `json:"permission"`
	}](t, rec).Permission

	rec = s.do(http.MethodPost, "/api/group-permission-mappings", map[string]string{"permission_group_id": group.ID, "permission_id": perm.ID}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/group-permission-mappings", map[string]string{"permission_group_id": group.ID, "permission_id": perm.ID}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/permission-groups/"+group.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "accounts:audit")

	rec = s.do(http.MethodGet, "/api/permission-groups/not-a-uuid", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, false)
	s.do(http.MethodGet, "/health", nil, nil)
	rec := s.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rbacgate_http_requests_total")
}
