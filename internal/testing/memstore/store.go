// Package memstore is an in-memory stand-in for the PostgreSQL schema. It
// enforces the same unique, foreign-key, cascade and set-null rules so that
// services and handlers can be tested without a database.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/rbacgate/rbacgate/internal/permgroups"
	"github.com/rbacgate/rbacgate/internal/permissions"
	"github.com/rbacgate/rbacgate/internal/roles"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/users"
)

type pair struct{ a, b string }

// Store holds every table. Each accessor returns a view implementing one
// repository interface over the same data.
type Store struct {
	mu       sync.Mutex
	clock    time.Time
	failure  error
	users    map[string]users.User
	roles    map[string]roles.Role
	perms    map[string]permissions.Permission
	groups   map[string]permgroups.Group
	grants   map[pair]roles.Grant
	mappings map[pair]permgroups.Mapping
	sessions map[string]shared.Session
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[string]users.User{},
		roles:    map[string]roles.Role{},
		perms:    map[string]permissions.Permission{},
		groups:   map[string]permgroups.Group{},
		grants:   map[pair]roles.Grant{},
		mappings: map[pair]permgroups.Mapping{},
		sessions: map[string]shared.Session{},
		now:      time.Now,
	}
}

// Fail makes every subsequent operation return err wrapped as a store
// failure. Fail(nil) clears it.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// SetNow overrides the clock used to expire sessions.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns the users repository view.
func (s *Store) Users() *Users { return &Users{s} }

// Roles returns the roles repository view.
func (s *Store) Roles() *Roles { return &Roles{s} }

// Permissions returns the permissions repository view.
func (s *Store) Permissions() *Permissions { return &Permissions{s} }

// Groups returns the permission groups repository view.
func (s *Store) Groups() *Groups { return &Groups{s} }

// Grants returns the grant store view.
func (s *Store) Grants() *Grants { return &Grants{s} }

// Sessions returns the session store view.
func (s *Store) Sessions() *Sessions { return &Sessions{s} }

// begin acquires the store and reports the injected failure, if any. The
// returned func releases it.
func (s *Store) begin(op string) (func(), error) {
	s.mu.Lock()
	if s.failure != nil {
		err := shared.StoreError(op, s.failure)
		s.mu.Unlock()
		return nil, err
	}
	return s.mu.Unlock, nil
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func newestFirst[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]) < id(items[j])
	})
}

