package memstore

import (
	"context"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// Sessions implements shared.SessionStore.
type Sessions struct{ s *Store }

func (v *Sessions) Save(ctx context.Context, sess shared.Session) error {
	done, err := v.s.begin("sessions: save")
	if err != nil {
		return err
	}
	defer done()
	v.s.sessions[sess.ID] = sess
	return nil
}

func (v *Sessions) Find(ctx context.Context, id string) (shared.Session, bool, error) {
	done, err := v.s.begin("sessions: find")
	if err != nil {
		return shared.Session{}, false, err
	}
	defer done()
	sess, ok := v.s.sessions[id]
	return sess, ok, nil
}

func (v *Sessions) Delete(ctx context.Context, id string) error {
	done, err := v.s.begin("sessions: delete")
	if err != nil {
		return err
	}
	defer done()
	delete(v.s.sessions, id)
	return nil
}

func (v *Sessions) PurgeExpired(ctx context.Context) (int64, error) {
	done, err := v.s.begin("sessions: purge expired")
	if err != nil {
		return 0, err
	}
	defer done()
	now := v.s.now()
	var n int64
	for id, sess := range v.s.sessions {
		if sess.Expired(now) {
			delete(v.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (v *Sessions) Ping(ctx context.Context) error {
	done, err := v.s.begin("sessions: ping")
	if err != nil {
		return err
	}
	done()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (v *Sessions) Len() int {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return len(v.s.sessions)
}

var _ shared.SessionStore = (*Sessions)(nil)
