package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tresoflow/entitlement-service/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (account_uid, email, username, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.AccountUID, user.Email, user.Username, user.PasswordHash,
		string(user.Role)).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, account_uid, email, username, password_hash, role, created_at
			  FROM users
			  WHERE uid = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, userUID), op)
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, account_uid, email, username, password_hash, role, created_at
			  FROM users
			  WHERE username = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, username), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var role string
	var accountUID sql.NullString
	if err := row.Scan(&u.UID, &accountUID, &u.Email, &u.Username,
		&u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Role = models.Role(role)
	if accountUID.Valid {
		u.AccountUID = accountUID.String
	}
	return u, nil
}

// GetUserRole возвращает назначенную роль пользователя.
// false означает, что записи о пользователе нет.
func (s *Storage) GetUserRole(ctx context.Context, userUID string) (models.Role, bool, error) {
	const op = "storage.GetUserRole"
	select {
	case <-ctx.Done():
		return "", false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT role FROM users WHERE uid = $1`
	var role string
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return models.Role(role), true, nil
}

// AssignRole назначает пользователю роль.
func (s *Storage) AssignRole(ctx context.Context, userUID string, role models.Role) error {
	const op = "storage.AssignRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET role = $1 WHERE uid = $2`
	_, err := s.DB.ExecContext(ctx, query, string(role), userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SuperadminExists сообщает, есть ли в системе хотя бы один superadmin.
func (s *Storage) SuperadminExists(ctx context.Context) (bool, error) {
	const op = "storage.SuperadminExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, string(models.RoleSuperadmin)).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CountAccountUsers возвращает число пользователей аккаунта.
func (s *Storage) CountAccountUsers(ctx context.Context, accountUID string) (int, error) {
	const op = "storage.CountAccountUsers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM users WHERE account_uid = $1`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, accountUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
