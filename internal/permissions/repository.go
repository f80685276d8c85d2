package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Repository defines data access methods for permissions.
type Repository interface {
	List(ctx context.Context) ([]Permission, error)
	FindByID(ctx context.Context, id string) (Permission, bool, error)
	FindByName(ctx context.Context, name string) (Permission, bool, error)
	Create(ctx context.Context, in NewPermission) (Permission, error)
	Update(ctx context.Context, id string, patch Patch) (Permission, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	GroupExists(ctx context.Context, groupID string) (bool, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository on a pool or transaction.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const projection = `p.id::text, p.name, p.description, p.permission_group_id::text, g.name, p.created_at, p.updated_at`

const selectPermission = `SELECT ` + projection + `
FROM permissions p LEFT JOIN permission_groups g ON g.id = p.permission_group_id`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PermissionGroupID, &p.PermissionGroupName, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns all permissions, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.db.Query(ctx, selectPermission+` ORDER BY p.created_at DESC, p.id`)
	if err != nil {
		return nil, shared.StoreError("permissions: list", err)
	}
	defer rows.Close()
	out := make([]Permission, 0)
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, shared.StoreError("permissions: list scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("permissions: list", err)
	}
	return out, nil
}

// FindByID loads a permission by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (Permission, bool, error) {
	return r.findOne(ctx, "permissions: find by id", selectPermission+` WHERE p.id = $1`, id)
}

// FindByName loads a permission by name.
func (r *PGRepository) FindByName(ctx context.Context, name string) (Permission, bool, error) {
	return r.findOne(ctx, "permissions: find by name", selectPermission+` WHERE p.name = $1`, name)
}

func (r *PGRepository) findOne(ctx context.Context, op, query string, arg any) (Permission, bool, error) {
	p, err := scanPermission(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, false, nil
		}
		return Permission{}, false, shared.StoreError(op, err)
	}
	return p, true, nil
}

// Create inserts a permission.
func (r *PGRepository) Create(ctx context.Context, in NewPermission) (Permission, error) {
	const query = `WITH p AS (
	INSERT INTO permissions (id, name, description, permission_group_id)
	VALUES ($1, $2, $3, $4)
	RETURNING *
)
SELECT ` + projection + ` FROM p LEFT JOIN permission_groups g ON g.id = p.permission_group_id`
	p, err := scanPermission(r.db.QueryRow(ctx, query, in.ID, in.Name, in.Description, in.PermissionGroupID))
	if err != nil {
		return Permission{}, mapWriteError("permissions: create", err)
	}
	return p, nil
}

// Update writes the columns present in patch. An empty patch is a plain read.
func (r *PGRepository) Update(ctx context.Context, id string, patch Patch) (Permission, bool, error) {
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
	if patch.PermissionGroupID.Set {
		b.Set("permission_group_id", patch.PermissionGroupID.Value)
	}
	set, idParam, args := b.Build(id)
	query := `WITH p AS (
	UPDATE permissions SET ` + set + ` WHERE id = ` + idParam + `
	RETURNING *
)
SELECT ` + projection + ` FROM p LEFT JOIN permission_groups g ON g.id = p.permission_group_id`
	p, err := scanPermission(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, false, nil
		}
		return Permission{}, false, mapWriteError("permissions: update", err)
	}
	return p, true, nil
}

// Delete removes a permission. Grants and group mappings go with it.
func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return false, shared.StoreError("permissions: delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GroupExists reports whether groupID names an existing permission group.
func (r *PGRepository) GroupExists(ctx context.Context, groupID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM permission_groups WHERE id = $1)`, groupID).Scan(&exists); err != nil {
		return false, shared.StoreError("permissions: group exists", err)
	}
	return exists, nil
}

func mapWriteError(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return shared.Conflict("permission name already exists")
	case db.IsForeignKeyViolation(err):
		return shared.NotFound("permission group not found")
	default:
		return shared.StoreError(op, err)
	}
}

var _ Repository = (*PGRepository)(nil)
