package permgroups

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Repository defines data access methods for groups and their mappings.
type Repository interface {
	List(ctx context.Context) ([]Group, error)
	FindByID(ctx context.Context, id string) (Group, bool, error)
	FindByName(ctx context.Context, name string) (Group, bool, error)
	Create(ctx context.Context, in NewGroup) (Group, error)
	Update(ctx context.Context, id string, patch Patch) (Group, bool, error)
	Delete(ctx context.Context, id string) (bool, error)

	ListPermissions(ctx context.Context, groupID string) ([]MappedPermission, error)
	PermissionExists(ctx context.Context, permissionID string) (bool, error)
	CreateMapping(ctx context.Context, m Mapping) (Mapping, error)
	DeleteMapping(ctx context.Context, groupID, permissionID string) (bool, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository on a pool or transaction.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const groupColumns = `id::text, name, description, created_at, updated_at`

func scanGroup(row pgx.Row) (Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// List returns all groups, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Group, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM permission_groups ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, shared.StoreError("permgroups: list", err)
	}
	defer rows.Close()
	out := make([]Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, shared.StoreError("permgroups: list scan", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("permgroups: list", err)
	}
	return out, nil
}

// FindByID loads a group by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (Group, bool, error) {
	return r.findOne(ctx, "permgroups: find by id", `SELECT `+groupColumns+` FROM permission_groups WHERE id = $1`, id)
}

// FindByName loads a group by name.
func (r *PGRepository) FindByName(ctx context.Context, name string) (Group, bool, error) {
	return r.findOne(ctx, "permgroups: find by name", `SELECT `+groupColumns+` FROM permission_groups WHERE name = $1`, name)
}

func (r *PGRepository) findOne(ctx context.Context, op, query string, arg any) (Group, bool, error) {
	g, err := scanGroup(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, false, nil
		}
		return Group{}, false, shared.StoreError(op, err)
	}
	return g, true, nil
}

// Create inserts a group.
func (r *PGRepository) Create(ctx context.Context, in NewGroup) (Group, error) {
	g, err := scanGroup(r.db.QueryRow(ctx,
		`INSERT INTO permission_groups (id, name, description) VALUES ($1, $2, $3) RETURNING `+groupColumns,
		in.ID, in.Name, in.Description))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Group{}, shared.Conflict("permission group name already exists")
		}
		return Group{}, shared.StoreError("permgroups: create", err)
	}
	return g, nil
}

// Update writes the columns present in patch. An empty patch is a plain read.
func (r *PGRepository) Update(ctx context.Context, id string, patch Patch) (Group, bool, error) {
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
	set, idParam, args := b.Build(id)
	g, err := scanGroup(r.db.QueryRow(ctx, `UPDATE permission_groups SET `+set+` WHERE id = `+idParam+` RETURNING `+groupColumns, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Group{}, false, nil
		case db.IsUniqueViolation(err):
			return Group{}, false, shared.Conflict("permission group name already exists")
		default:
			return Group{}, false, shared.StoreError("permgroups: update", err)
		}
	}
	return g, true, nil
}

// Delete removes a group. Its mappings go with it; member permissions keep
// existing with no group.
func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM permission_groups WHERE id = $1`, id)
	if err != nil {
		return false, shared.StoreError("permgroups: delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPermissions returns the permissions mapped to groupID, newest mapping first.
func (r *PGRepository) ListPermissions(ctx context.Context, groupID string) ([]MappedPermission, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id::text, p.name, p.description, m.created_at
FROM group_permission_mappings m JOIN permissions p ON p.id = m.permission_id
WHERE m.permission_group_id = $1
ORDER BY m.created_at DESC, p.name`, groupID)
	if err != nil {
		return nil, shared.StoreError("permgroups: list permissions", err)
	}
	defer rows.Close()
	out := make([]MappedPermission, 0)
	for rows.Next() {
		var p MappedPermission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.MappedAt); err != nil {
			return nil, shared.StoreError("permgroups: list permissions scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("permgroups: list permissions", err)
	}
	return out, nil
}

// PermissionExists reports whether permissionID names an existing permission.
func (r *PGRepository) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM permissions WHERE id = $1)`, permissionID).Scan(&exists); err != nil {
		return false, shared.StoreError("permgroups: permission exists", err)
	}
	return exists, nil
}

// CreateMapping inserts a group_permission_mappings row.
func (r *PGRepository) CreateMapping(ctx context.Context, m Mapping) (Mapping, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO group_permission_mappings (id, permission_group_id, permission_id) VALUES ($1, $2, $3) RETURNING created_at`,
		m.ID, m.PermissionGroupID, m.PermissionID).Scan(&m.CreatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return Mapping{}, shared.Conflict("group permission mapping already exists")
		case db.IsForeignKeyViolation(err):
			return Mapping{}, shared.NotFound("permission group or permission not found")
		default:
			return Mapping{}, shared.StoreError("permgroups: create mapping", err)
		}
	}
	return m, nil
}

// DeleteMapping removes a group_permission_mappings row.
func (r *PGRepository) DeleteMapping(ctx context.Context, groupID, permissionID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM group_permission_mappings WHERE permission_group_id = $1 AND permission_id = $2`, groupID, permissionID)
	if err != nil {
		return false, shared.StoreError("permgroups: delete mapping", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ Repository = (*PGRepository)(nil)
