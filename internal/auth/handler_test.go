package auth_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbacgate/rbacgate/internal/auth"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/shared"
)

func newRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := rbac.Middleware{
		Service:    rbac.NewService(f.store.Grants(), true),
		Identities: f.users,
		Sessions:   f.sessions,
		Logger:     logger,
		Metrics:    f.metrics,
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := f.sessions.Load(r.Context(), r)
			require.NoError(t, err)
			if sess != nil {
				r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Route("/api/auth", auth.NewHandler(logger, f.auth, f.sessions, mw).MountRoutes)
	return r
}

func do(h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, f *fixture, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == f.sessions.CookieName() {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", f.sessions.CookieName())
	return nil
}

func TestRegisterLoginMeLogout(t *testing.T) {
	f := newFixture(t)
	h := newRouter(t, f)

	rec := do(h, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"alice@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered struct {
		Message string         `json:"message"`
		User    map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.Equal(t, "User registered successfully", registered.Message)
	assert.Equal(t, "alice", registered.User["username"])
	assert.NotContains(t, registered.User, "password_hash")

	rec = do(h, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Login successful")
	cookie := sessionCookie(t, f, rec)
	assert.True(t, cookie.HttpOnly)

	rec = do(h, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = do(h, http.MethodGet, "/api/auth/me/permissions", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"permissions":[]}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logout successful"}`, rec.Body.String())
	assert.Equal(t, -1, sessionCookie(t, f, rec).MaxAge)

	rec = do(h, http.MethodGet, "/api/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	h := newRouter(t, f)
	f.register(t, "alice")

	rec := do(h, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = do(h, http.MethodPost, "/api/auth/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginReplacesPresentedSession(t *testing.T) {
	f := newFixture(t)
	h := newRouter(t, f)
	f.register(t, "alice")

	first := sessionCookie(t, f, do(h, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret1"}`))
	second := sessionCookie(t, f, do(h, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret1"}`, first))
	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, 1, f.store.Sessions().Len())

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/auth/me", "", first).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/auth/me", "", second).Code)
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	f := newFixture(t)
	h := newRouter(t, f)
	f.register(t, "alice")

	cookie := sessionCookie(t, f, do(h, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret1"}`))
	cookie.Value += "x"
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/auth/me", "", cookie).Code)
}
