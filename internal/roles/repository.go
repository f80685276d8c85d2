package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Repository defines data access methods for roles and their grants.
type Repository interface {
	List(ctx context.Context) ([]Role, error)
	FindByID(ctx context.Context, id string) (Role, bool, error)
	FindByName(ctx context.Context, name string) (Role, bool, error)
	Create(ctx context.Context, in NewRole) (Role, error)
	Update(ctx context.Context, id string, patch Patch) (Role, bool, error)
	Delete(ctx context.Context, id string) (bool, error)

	ListPermissions(ctx context.Context, roleID string) ([]GrantedPermission, error)
	PermissionExists(ctx context.Context, permissionID string) (bool, error)
	CreateGrant(ctx context.Context, g Grant) (Grant, error)
	DeleteGrant(ctx context.Context, roleID, permissionID string) (bool, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository on a pool or transaction.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const roleColumns = `id::text, name, description, is_active, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var r Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// List returns all roles, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, shared.StoreError("roles: list", err)
	}
	defer rows.Close()
	out := make([]Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, shared.StoreError("roles: list scan", err)
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("roles: list", err)
	}
	return out, nil
}

// FindByID loads a role by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (Role, bool, error) {
	return r.findOne(ctx, "roles: find by id", `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

// FindByName loads a role by name.
func (r *PGRepository) FindByName(ctx context.Context, name string) (Role, bool, error) {
	return r.findOne(ctx, "roles: find by name", `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
}

func (r *PGRepository) findOne(ctx context.Context, op, query string, arg any) (Role, bool, error) {
	role, err := scanRole(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, false, nil
		}
		return Role{}, false, shared.StoreError(op, err)
	}
	return role, true, nil
}

// Create inserts a role.
func (r *PGRepository) Create(ctx context.Context, in NewRole) (Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx,
		`INSERT INTO roles (id, name, description, is_active) VALUES ($1, $2, $3, $4) RETURNING `+roleColumns,
		in.ID, in.Name, in.Description, in.IsActive))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, shared.Conflict("role name already exists")
		}
		return Role{}, shared.StoreError("roles: create", err)
	}
	return role, nil
}

// Update writes the columns present in patch. An empty patch is a plain read.
func (r *PGRepository) Update(ctx context.Context, id string, patch Patch) (Role, bool, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}
	var b db.UpdateBuilder
	if patch.Name.Set {
		b.Set("name", patch.Name.Value)
	}
	if patch.Description.Set {
		b.Set("description", patch.Description.Value)
	}
	if patch.IsActive.Set {
		b.Set("is_active", patch.IsActive.Value)
	}
	set, idParam, args := b.Build(id)
	role, err := scanRole(r.db.QueryRow(ctx, `UPDATE roles SET `+set+` WHERE id = `+idParam+` RETURNING `+roleColumns, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Role{}, false, nil
		case db.IsUniqueViolation(err):
			return Role{}, false, shared.Conflict("role name already exists")
		default:
			return Role{}, false, shared.StoreError("roles: update", err)
		}
	}
	return role, true, nil
}

// Delete removes a role. Its grants go with it and its users lose the role.
func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return false, shared.StoreError("roles: delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPermissions returns the permissions granted to roleID, newest grant first.
func (r *PGRepository) ListPermissions(ctx context.Context, roleID string) ([]GrantedPermission, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id::text, p.name, p.description, p.permission_group_id::text, rp.created_at
FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
WHERE rp.role_id = $1
ORDER BY rp.created_at DESC, p.name`, roleID)
	if err != nil {
		return nil, shared.StoreError("roles: list permissions", err)
	}
	defer rows.Close()
	out := make([]GrantedPermission, 0)
	for rows.Next() {
		var p GrantedPermission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PermissionGroupID, &p.GrantedAt); err != nil {
			return nil, shared.StoreError("roles: list permissions scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("roles: list permissions", err)
	}
	return out, nil
}

// PermissionExists reports whether permissionID names an existing permission.
func (r *PGRepository) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM permissions WHERE id = $1)`, permissionID).Scan(&exists); err != nil {
		return false, shared.StoreError("roles: permission exists", err)
	}
	return exists, nil
}

// CreateGrant inserts a role_permissions row.
func (r *PGRepository) CreateGrant(ctx context.Context, g Grant) (Grant, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO role_permissions (id, role_id, permission_id) VALUES ($1, $2, $3) RETURNING created_at`,
		g.ID, g.RoleID, g.PermissionID).Scan(&g.CreatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return Grant{}, shared.Conflict("role permission already exists")
		case db.IsForeignKeyViolation(err):
			return Grant{}, shared.NotFound("role or permission not found")
		default:
			return Grant{}, shared.StoreError("roles: create grant", err)
		}
	}
	return g, nil
}

// DeleteGrant removes a role_permissions row.
func (r *PGRepository) DeleteGrant(ctx context.Context, roleID, permissionID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return false, shared.StoreError("roles: delete grant", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ Repository = (*PGRepository)(nil)
