package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps sessions in Redis with a key TTL equal to the
// remaining session lifetime.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSessionStore constructs the store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

// Save writes the session payload.
func (s *RedisSessionStore) Save(ctx context.Context, sess Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(sess.ID), data, ttl).Err(); err != nil {
		return StoreError("sessions: redis set", err)
	}
	return nil
}

// Find loads a session by token.
func (s *RedisSessionStore) Find(ctx context.Context, id string) (Session, bool, error) {
	payload, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, StoreError("sessions: redis get", err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, false, StoreError("sessions: decode", err)
	}
	sess.ID = id
	return sess, true, nil
}

// Delete removes the session key.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return StoreError("sessions: redis del", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis evicts keys once their TTL elapses.
func (s *RedisSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// Ping checks Redis reachability.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) redisKey(id string) string {
	return "session:" + id
}

var _ SessionStore = (*RedisSessionStore)(nil)
