package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tresoflow/entitlement-service/internal/models"
)

// CreateAccount сохраняет новый аккаунт и возвращает его UID.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account) (string, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO accounts (name, status, plan_id, trial_start_date, trial_end_date)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		account.Name, string(account.Status), account.PlanID,
		account.TrialStartDate, account.TrialEndDate).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetAccount возвращает аккаунт по UID.
func (s *Storage) GetAccount(ctx context.Context, accountUID string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, status, plan_id, trial_start_date, trial_end_date,
			      activation_date, valid_until
			  FROM accounts
			  WHERE uid = $1`
	return scanAccount(s.DB.QueryRowContext(ctx, query, accountUID), op)
}

// GetAccountByUserUID возвращает аккаунт, которому принадлежит пользователь.
func (s *Storage) GetAccountByUserUID(ctx context.Context, userUID string) (*models.Account, error) {
	const op = "storage.GetAccountByUserUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT a.uid, a.name, a.status, a.plan_id, a.trial_start_date,
			      a.trial_end_date, a.activation_date, a.valid_until
			  FROM accounts a
			  JOIN users u ON u.account_uid = a.uid
			  WHERE u.uid = $1`
	return scanAccount(s.DB.QueryRowContext(ctx, query, userUID), op)
}

func scanAccount(row *sql.Row, op string) (*models.Account, error) {
	a := &models.Account{}
	var status string
	var trialStart, trialEnd, activation, validUntil sql.NullTime
	if err := row.Scan(&a.UID, &a.Name, &status, &a.PlanID,
		&trialStart, &trialEnd, &activation, &validUntil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.Status = models.AccountStatus(status)
	if trialStart.Valid {
		a.TrialStartDate = &trialStart.Time
	}
	if trialEnd.Valid {
		a.TrialEndDate = &trialEnd.Time
	}
	if activation.Valid {
		a.ActivationDate = &activation.Time
	}
	if validUntil.Valid {
		a.ValidUntil = &validUntil.Time
	}
	return a, nil
}

// UpdateAccountStatus обновляет сохранённый статус аккаунта.
func (s *Storage) UpdateAccountStatus(ctx context.Context, accountUID string, status models.AccountStatus) error {
	const op = "storage.UpdateAccountStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET status = $1 WHERE uid = $2`
	_, err := s.DB.ExecContext(ctx, query, string(status), accountUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ActivateAccount переводит аккаунт в active с датами активации и окончания
// оплаченного периода.
func (s *Storage) ActivateAccount(ctx context.Context, accountUID string, activationDate, validUntil time.Time) error {
	const op = "storage.ActivateAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET status = $1,
			      activation_date = $2,
			      valid_until = $3
			  WHERE uid = $4`
	_, err := s.DB.ExecContext(ctx, query, string(models.StatusActive),
		activationDate, validUntil, accountUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
