package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record bound to an opaque token.
type Session struct {
	ID        string            `json:"-"`
	UserID    string            `json:"user_id"`
	Username  string            `json:"username"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired reports whether the session lifetime has elapsed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionMeta is the metadata recorded alongside a new session.
type SessionMeta struct {
	Username  string
	IP        string
	UserAgent string
}

// SessionStore persists sessions keyed by token.
type SessionStore interface {
	Save(ctx context.Context, sess Session) error
	Find(ctx context.Context, id string) (Session, bool, error)
	// Delete removes a session; deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Name     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// SessionManager issues, resolves and destroys sessions and handles the
// signed cookie that carries the token.
type SessionManager struct {
	store  SessionStore
	cookie CookieOptions
	ttl    time.Duration
	secret []byte
	now    func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(store SessionStore, cookie CookieOptions, secret string, ttl time.Duration) *SessionManager {
	if cookie.Name == "" {
		cookie.Name = "rbac_session"
	}
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return &SessionManager{
		store:  store,
		cookie: cookie,
		ttl:    ttl,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Create mints a fresh token for userID and persists the session.
func (sm *SessionManager) Create(ctx context.Context, userID string, meta SessionMeta) (*Session, error) {
	if userID == "" {
		return nil, errors.New("session: user id required")
	}
	id, err := sm.generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("session: generate id: %w", err)
	}
	now := sm.now().UTC()
	sess := Session{
		ID:        id,
		UserID:    userID,
		Username:  meta.Username,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}
	if err := sm.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Resolve looks up a live session. Missing and expired sessions resolve to
// nothing; expired ones are removed on the way out.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (*Session, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	sess, found, err := sm.store.Find(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if sess.Expired(sm.now()) {
		if err := sm.store.Delete(ctx, token); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	sess.ID = token
	return &sess, true, nil
}

// Destroy invalidates the session. Destroying an unknown token is a no-op.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return sm.store.Delete(ctx, token)
}

// Load resolves the session referenced by the request cookie, if any.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token, ok := sm.TokenFromRequest(r)
	if !ok {
		return nil, nil
	}
	sess, found, err := sm.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return sess, nil
}

// TokenFromRequest returns the token from a correctly signed session cookie.
func (sm *SessionManager) TokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sm.cookie.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return sm.unsign(cookie.Value)
}

// WriteCookie sets the signed session cookie on the response.
func (sm *SessionManager) WriteCookie(w http.ResponseWriter, sess *Session) {
	if sess == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookie.Name,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		MaxAge:   int(sm.ttl / time.Second),
		Expires:  sess.ExpiresAt,
		HttpOnly: sm.cookie.HTTPOnly,
		Secure:   sm.cookie.Secure,
		SameSite: sm.cookie.SameSite,
	})
}

// ClearCookie expires the session cookie on the client.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: sm.cookie.HTTPOnly,
		Secure:   sm.cookie.Secure,
		SameSite: sm.cookie.SameSite,
	})
}

// PurgeExpired removes every expired session from the store.
func (sm *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return sm.store.PurgeExpired(ctx)
}

// Ping reports whether the session store is reachable.
func (sm *SessionManager) Ping(ctx context.Context) error {
	return sm.store.Ping(ctx)
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookie.Name
}

// SignedValue returns the cookie value that carries token.
func (sm *SessionManager) SignedValue(token string) string {
	return sm.sign(token)
}

func (sm *SessionManager) sign(token string) string {
	return token + "." + base64.RawURLEncoding.EncodeToString(sm.mac(token))
}

func (sm *SessionManager) unsign(value string) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", false
	}
	token, sig := value[:idx], value[idx+1:]
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, sm.mac(token)) {
		return "", false
	}
	return token, true
}

func (sm *SessionManager) mac(token string) []byte {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(token))
	return mac.Sum(nil)
}

func (sm *SessionManager) generateSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
