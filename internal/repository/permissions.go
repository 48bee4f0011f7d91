package repository

import (
	"context"

	"github.com/munaburhan/school-system/internal/model"
)

// GetPermission returns the matrix entry for (role, module). A missing entry
// surfaces as pgx.ErrNoRows; callers must treat that as "no access", never as
// an error to retry.
func (s *Store) GetPermission(ctx context.Context, role, module string) (model.Permission, error) {
	var perm model.Permission
	row := s.pool.QueryRow(ctx, `
		SELECT role, module, can_read, can_write, can_delete
		FROM permissions
		WHERE role = $1 AND module = $2
	`, role, module)
	err := row.Scan(&perm.Role, &perm.Module, &perm.CanRead, &perm.CanWrite, &perm.CanDelete)
	return perm, err
}

func (s *Store) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, module, can_read, can_write, can_delete
		FROM permissions
		ORDER BY role, module
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []model.Permission
	for rows.Next() {
		var perm model.Permission
		if err := rows.Scan(&perm.Role, &perm.Module, &perm.CanRead, &perm.CanWrite, &perm.CanDelete); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func (s *Store) UpsertPermission(ctx context.Context, perm model.Permission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO permissions (role, module, can_read, can_write, can_delete)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (role, module) DO UPDATE
		SET can_read = $3, can_write = $4, can_delete = $5, updated_at = CURRENT_TIMESTAMP
	`, perm.Role, perm.Module, perm.CanRead, perm.CanWrite, perm.CanDelete)
	return err
}
