package shared

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSessionStore keeps sessions in the sessions table so that they survive
// restarts of the serving process.
type PGSessionStore struct {
	pool *pgxpool.Pool
}

// NewPGSessionStore constructs the store.
func NewPGSessionStore(pool *pgxpool.Pool) *PGSessionStore {
	return &PGSessionStore{pool: pool}
}

// Save inserts or replaces a session row.
func (s *PGSessionStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	const query = `INSERT INTO sessions (sid, user_id, data, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sid) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`
	if _, err := s.pool.Exec(ctx, query, sess.ID, sess.UserID, data, sess.ExpiresAt, sess.CreatedAt); err != nil {
		return StoreError("sessions: save", err)
	}
	return nil
}

// Find loads a session by token.
func (s *PGSessionStore) Find(ctx context.Context, id string) (Session, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE sid = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, StoreError("sessions: find", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, StoreError("sessions: decode", err)
	}
	sess.ID = id
	return sess, true, nil
}

// Delete removes a session row.
func (s *PGSessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE sid = $1`, id); err != nil {
		return StoreError("sessions: delete", err)
	}
	return nil
}

// PurgeExpired removes sessions whose lifetime has elapsed.
func (s *PGSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, StoreError("sessions: purge expired", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks database reachability.
func (s *PGSessionStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ SessionStore = (*PGSessionStore)(nil)
