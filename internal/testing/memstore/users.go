package memstore

import (
	"context"
	"time"

	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/users"
)

// Users implements users.Repository.
type Users struct{ s *Store }

func (v *Users) view(u users.User) users.User {
	u.RoleID = clone(u.RoleID)
	u.RoleName = nil
	if u.RoleID != nil {
		if role, ok := v.s.roles[*u.RoleID]; ok {
			name := role.Name
			u.RoleName = &name
		}
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

func (v *Users) List(ctx context.Context) ([]users.User, error) {
	done, err := v.s.begin("users: list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]users.User, 0, len(v.s.users))
	for _, u := range v.s.users {
		out = append(out, v.view(u))
	}
	newestFirst(out, func(u users.User) time.Time { return u.CreatedAt }, func(u users.User) string { return u.ID })
	return out, nil
}

func (v *Users) FindByID(ctx context.Context, id string) (users.User, bool, error) {
	done, err := v.s.begin("users: find by id")
	if err != nil {
		return users.User{}, false, err
	}
	defer done()
	u, ok := v.s.users[id]
	if !ok {
		return users.User{}, false, nil
	}
	return v.view(u), true, nil
}

func (v *Users) FindByUsername(ctx context.Context, username string) (users.User, bool, error) {
	return v.findBy("users: find by username", func(u users.User) bool { return u.Username == username })
}

func (v *Users) FindByEmail(ctx context.Context, email string) (users.User, bool, error) {
	return v.findBy("users: find by email", func(u users.User) bool { return u.Email == email })
}

func (v *Users) findBy(op string, match func(users.User) bool) (users.User, bool, error) {
	done, err := v.s.begin(op)
	if err != nil {
		return users.User{}, false, err
	}
	defer done()
	for _, u := range v.s.users {
		if match(u) {
			return v.view(u), true, nil
		}
	}
	return users.User{}, false, nil
}

func (v *Users) Create(ctx context.Context, in users.NewUser) (users.User, error) {
	done, err := v.s.begin("users: create")
	if err != nil {
		return users.User{}, err
	}
	defer done()
	if err := v.check("", in.Username, in.Email, in.RoleID); err != nil {
		return users.User{}, err
	}
	now := v.s.tick()
	u := users.User{
		ID:           in.ID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		RoleID:       clone(in.RoleID),
		IsActive:     in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	v.s.users[u.ID] = u
	return v.view(u), nil
}

func (v *Users) Update(ctx context.Context, id string, patch users.Patch) (users.User, bool, error) {
	done, err := v.s.begin("users: update")
	if err != nil {
		return users.User{}, false, err
	}
	defer done()
	u, ok := v.s.users[id]
	if !ok {
		return users.User{}, false, nil
	}
	if patch.Empty() {
		return v.view(u), true, nil
	}
	if patch.Username.Set {
		u.Username = patch.Username.Value
	}
	if patch.Email.Set {
		u.Email = patch.Email.Value
	}
	if patch.PasswordHash.Set {
		u.PasswordHash = patch.PasswordHash.Value
	}
	if patch.RoleID.Set {
		u.RoleID = clone(patch.RoleID.Value)
	}
	if patch.IsActive.Set {
		u.IsActive = patch.IsActive.Value
	}
	if err := v.check(id, u.Username, u.Email, u.RoleID); err != nil {
		return users.User{}, false, err
	}
	u.UpdatedAt = v.s.tick()
	v.s.users[id] = u
	return v.view(u), true, nil
}

func (v *Users) Delete(ctx context.Context, id string) (bool, error) {
	done, err := v.s.begin("users: delete")
	if err != nil {
		return false, err
	}
	defer done()
	if _, ok := v.s.users[id]; !ok {
		return false, nil
	}
	delete(v.s.users, id)
	return true, nil
}

func (v *Users) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	done, err := v.s.begin("users: touch last login")
	if err != nil {
		return err
	}
	defer done()
	if u, ok := v.s.users[id]; ok {
		u.LastLogin = &at
		u.UpdatedAt = v.s.tick()
		v.s.users[id] = u
	}
	return nil
}

func (v *Users) RoleExists(ctx context.Context, roleID string) (bool, error) {
	done, err := v.s.begin("users: role exists")
	if err != nil {
		return false, err
	}
	defer done()
	_, ok := v.s.roles[roleID]
	return ok, nil
}

// check enforces the unique and foreign-key constraints of the users table.
func (v *Users) check(selfID, username, email string, roleID *string) error {
	for id, other := range v.s.users {
		if id == selfID {
			continue
		}
		if other.Username == username {
			return shared.Conflict("username already exists")
		}
		if other.Email == email {
			return shared.Conflict("email already exists")
		}
	}
	if roleID != nil {
		if _, ok := v.s.roles[*roleID]; !ok {
			return shared.NotFound("role not found")
		}
	}
	return nil
}

var _ users.Repository = (*Users)(nil)
