package rbac

import (
	"context"

	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// PGGrantStore implements GrantStore on PostgreSQL.
type PGGrantStore struct {
	db db.DBTX
}

// NewGrantStore constructs a grant store on a pool or transaction.
func NewGrantStore(conn db.DBTX) *PGGrantStore {
	return &PGGrantStore{db: conn}
}

const activeRoleJoin = ` JOIN roles r ON r.id = rp.role_id AND r.is_active`

// CountGrants counts matching role_permissions rows.
func (s *PGGrantStore) CountGrants(ctx context.Context, roleID, name string, activeOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id`
	if activeOnly {
		query += activeRoleJoin
	}
	query += ` WHERE rp.role_id = $1 AND p.name = $2`
	var count int64
	if err := s.db.QueryRow(ctx, query, roleID, name).Scan(&count); err != nil {
		return 0, shared.StoreError("rbac: count grants", err)
	}
	return count, nil
}

// GrantedNames lists the permission names granted to roleID.
func (s *PGGrantStore) GrantedNames(ctx context.Context, roleID string, activeOnly bool) ([]string, error) {
	query := `SELECT p.name FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id`
	if activeOnly {
		query += activeRoleJoin
	}
	query += ` WHERE rp.role_id = $1 ORDER BY p.name`
	rows, err := s.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, shared.StoreError("rbac: granted names", err)
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, shared.StoreError("rbac: granted names scan", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("rbac: granted names", err)
	}
	return names, nil
}

var _ GrantStore = (*PGGrantStore)(nil)
