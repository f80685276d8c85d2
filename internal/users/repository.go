package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Repository defines data access methods for users.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (User, bool, error)
	FindByUsername(ctx context.Context, username string) (User, bool, error)
	FindByEmail(ctx context.Context, email string) (User, bool, error)
	Create(ctx context.Context, in NewUser) (User, error)
	Update(ctx context.Context, id string, patch Patch) (User, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	RoleExists(ctx context.Context, roleID string) (bool, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository on a pool or transaction.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const selectUser = `SELECT u.id::text, u.username, u.email, u.password_hash, u.role_id::text, r.name,
	u.is_active, u.last_login, u.created_at, u.updated_at
FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// List returns all users, newest first.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUser+` ORDER BY u.created_at DESC, u.id`)
	if err != nil {
		return nil, shared.StoreError("users: list", err)
	}
	defer rows.Close()
	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, shared.StoreError("users: list scan", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("users: list", err)
	}
	return out, nil
}

// FindByID loads a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (User, bool, error) {
	return r.findOne(ctx, "users: find by id", selectUser+` WHERE u.id = $1`, id)
}

// FindByUsername loads a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	return r.findOne(ctx, "users: find by username", selectUser+` WHERE u.username = $1`, username)
}

// FindByEmail loads a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	return r.findOne(ctx, "users: find by email", selectUser+` WHERE u.email = $1`, email)
}

func (r *PGRepository) findOne(ctx context.Context, op, query string, arg any) (User, bool, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, shared.StoreError(op, err)
	}
	return u, true, nil
}

// Create inserts a user and returns it with its role name.
func (r *PGRepository) Create(ctx context.Context, in NewUser) (User, error) {
	const query = `WITH u AS (
	INSERT INTO users (id, username, email, password_hash, role_id, is_active)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING *
)
SELECT u.id::text, u.username, u.email, u.password_hash, u.role_id::text, r.name,
	u.is_active, u.last_login, u.created_at, u.updated_at
FROM u LEFT JOIN roles r ON r.id = u.role_id`
	u, err := scanUser(r.db.QueryRow(ctx, query, in.ID, in.Username, in.Email, in.PasswordHash, in.RoleID, in.IsActive))
	if err != nil {
		return User{}, mapWriteError("users: create", err)
	}
	return u, nil
}

// Update writes the columns present in patch. An empty patch is a plain read.
func (r *PGRepository) Update(ctx context.Context, id string, patch Patch) (User, bool, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}
	var b db.UpdateBuilder
	if patch.Username.Set {
		b.Set("username", patch.Username.Value)
	}
	if patch.Email.Set {
		b.Set("email", patch.Email.Value)
	}
	if patch.PasswordHash.Set {
		b.Set("password_hash", patch.PasswordHash.Value)
	}
	if patch.RoleID.Set {
		b.Set("role_id", patch.RoleID.Value)
	}
	if patch.IsActive.Set {
		b.Set("is_active", patch.IsActive.Value)
	}
	set, idParam, args := b.Build(id)
	query := `WITH u AS (
	UPDATE users SET ` + set + ` WHERE id = ` + idParam + `
	RETURNING *
)
SELECT u.id::text, u.username, u.email, u.password_hash, u.role_id::text, r.name,
	u.is_active, u.last_login, u.created_at, u.updated_at
FROM u LEFT JOIN roles r ON r.id = u.role_id`
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, mapWriteError("users: update", err)
	}
	return u, true, nil
}

// Delete removes a user, reporting whether a row existed.
func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, shared.StoreError("users: delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchLastLogin records a successful login.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1, updated_at = now() WHERE id = $2`, at, id); err != nil {
		return shared.StoreError("users: touch last login", err)
	}
	return nil
}

// RoleExists reports whether roleID names an existing role.
func (r *PGRepository) RoleExists(ctx context.Context, roleID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
		return false, shared.StoreError("users: role exists", err)
	}
	return exists, nil
}

func mapWriteError(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err):
		switch db.ConstraintName(err) {
		case "users_email_key":
			return shared.Conflict("email already exists")
		default:
			return shared.Conflict("username already exists")
		}
	case db.IsForeignKeyViolation(err):
		return shared.NotFound("role not found")
	default:
		return shared.StoreError(op, err)
	}
}

var _ Repository = (*PGRepository)(nil)
