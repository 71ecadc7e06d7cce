package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tresoflow/entitlement-service/internal/models"
)

// ListPermissions возвращает каталог разрешений.
func (s *Storage) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	const op = "storage.ListPermissions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, page, action FROM permissions ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Permission
	for rows.Next() {
		var p models.Permission
		var page, action string
		if err := rows.Scan(&p.ID, &page, &action); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Page = models.Page(page)
		p.Action = models.Action(action)
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPermissionID возвращает ID разрешения по паре страница-действие.
// false означает, что такого разрешения в каталоге нет.
func (s *Storage) GetPermissionID(ctx context.Context, page models.Page, action models.Action) (int, bool, error) {
	const op = "storage.GetPermissionID"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id FROM permissions WHERE page = $1 AND action = $2`
	var id int
	err := s.DB.QueryRowContext(ctx, query, string(page), string(action)).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return id, true, nil
}

// ListRolePermissions возвращает гранты роли.
func (s *Storage) ListRolePermissions(ctx context.Context, role models.Role) ([]models.RolePermission, error) {
	const op = "storage.ListRolePermissions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT role, permission_id, granted
			  FROM role_permissions
			  WHERE role = $1`
	rows, err := s.DB.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.RolePermission
	for rows.Next() {
		var g models.RolePermission
		var r string
		if err := rows.Scan(&r, &g.PermissionID, &g.Granted); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		g.Role = models.Role(r)
		result = append(result, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListUserPermissions возвращает персональные переопределения пользователя.
func (s *Storage) ListUserPermissions(ctx context.Context, userUID string) ([]models.UserPermission, error) {
	const op = "storage.ListUserPermissions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, permission_id, granted
			  FROM user_permissions
			  WHERE user_uid = $1`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.UserPermission
	for rows.Next() {
		var o models.UserPermission
		if err := rows.Scan(&o.UserUID, &o.PermissionID, &o.Granted); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpsertRolePermission создаёт или обновляет грант роли.
// Последняя запись по ключу (role, permission_id) выигрывает.
func (s *Storage) UpsertRolePermission(ctx context.Context, grant models.RolePermission) error {
	const op = "storage.UpsertRolePermission"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO role_permissions (role, permission_id, granted)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (role, permission_id)
			  DO UPDATE SET granted = EXCLUDED.granted`
	_, err := s.DB.ExecContext(ctx, query, string(grant.Role), grant.PermissionID, grant.Granted)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertUserPermission создаёт или обновляет переопределение пользователя.
// Последняя запись по ключу (user_uid, permission_id) выигрывает.
func (s *Storage) UpsertUserPermission(ctx context.Context, override models.UserPermission) error {
	const op = "storage.UpsertUserPermission"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_permissions (user_uid, permission_id, granted)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_uid, permission_id)
			  DO UPDATE SET granted = EXCLUDED.granted`
	_, err := s.DB.ExecContext(ctx, query, override.UserUID, override.PermissionID, override.Granted)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
