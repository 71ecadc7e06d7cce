package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tresoflow/entitlement-service/internal/models"
)

// GetPlan возвращает тарифный план по ID.
func (s *Storage) GetPlan(ctx context.Context, planID int) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, max_users, max_projects, max_transactions_per_month,
			      max_bank_accounts, trial_enabled, trial_days, price_monthly
			  FROM plans
			  WHERE id = $1`
	p := &models.Plan{}
	var trialDays sql.NullInt64
	if err := s.DB.QueryRowContext(ctx, query, planID).Scan(&p.ID, &p.Name,
		&p.MaxUsers, &p.MaxProjects, &p.MaxTransactionsPerMonth, &p.MaxBankAccounts,
		&p.TrialEnabled, &trialDays, &p.PriceMonthly); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if trialDays.Valid {
		p.TrialDays = int(trialDays.Int64)
	}
	return p, nil
}

// ListPlans возвращает все тарифные планы.
func (s *Storage) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, max_users, max_projects, max_transactions_per_month,
			      max_bank_accounts, trial_enabled, trial_days, price_monthly
			  FROM plans
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		p := &models.Plan{}
		var trialDays sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.MaxUsers, &p.MaxProjects,
			&p.MaxTransactionsPerMonth, &p.MaxBankAccounts, &p.TrialEnabled,
			&trialDays, &p.PriceMonthly); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if trialDays.Valid {
			p.TrialDays = int(trialDays.Int64)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
