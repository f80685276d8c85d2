package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rbacgate/rbacgate/internal/platform/cache"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// OpenSessionStore picks the backend named by SESSION_STORE. The returned
// func releases whatever the store opened; the pool stays with the caller.
func OpenSessionStore(ctx context.Context, cfg *Config, pool *pgxpool.Pool) (shared.SessionStore, func(), error) {
	if cfg.SessionStore == SessionStoreRedis {
		client, err := cache.New(ctx, cfg.Redis())
		if err != nil {
			return nil, nil, err
		}
		return shared.NewRedisSessionStore(client), func() { _ = client.Close() }, nil
	}
	return shared.NewPGSessionStore(pool), func() {}, nil
}

// NewSessionManager builds the manager from configuration.
func NewSessionManager(cfg *Config, store shared.SessionStore) *shared.SessionManager {
	return shared.NewSessionManager(store, cfg.CookieOptions(), cfg.SessionSecret, cfg.SessionTTL)
}
