package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tresoflow/entitlement-service/internal/models"
)

// Код ошибки PostgreSQL unique_violation.
const pgUniqueViolation = "23505"

// HasTrialSubscription сообщает, была ли у пользователя когда-либо
// пробная подписка, независимо от её текущего статуса.
func (s *Storage) HasTrialSubscription(ctx context.Context, userUID string) (bool, error) {
	const op = "storage.HasTrialSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_uid = $1 AND trial_start_date IS NOT NULL)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateSubscription сохраняет подписку и возвращает её ID.
// Нарушение индекса "одна пробная подписка на пользователя"
// транслируется в ErrDuplicateTrial.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int
	query := `INSERT INTO subscriptions (user_uid, plan_id, status, is_trial,
			      trial_start_date, trial_end_date, start_date, end_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	err := s.DB.QueryRowContext(ctx, query,
		sub.UserUID, sub.PlanID, string(sub.Status), sub.IsTrial,
		sub.TrialStartDate, sub.TrialEndDate, sub.StartDate, sub.EndDate).Scan(&newID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicateTrial)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id int) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, status, is_trial, trial_start_date,
			      trial_end_date, start_date, end_date
			  FROM subscriptions
			  WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetActiveSubscription возвращает действующую подписку пользователя.
// false без ошибки означает, что действующей подписки нет.
func (s *Storage) GetActiveSubscription(ctx context.Context, userUID string) (*models.Subscription, bool, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, status, is_trial, trial_start_date,
			      trial_end_date, start_date, end_date
			  FROM subscriptions
			  WHERE user_uid = $1 AND status = $2
			  ORDER BY id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID,
		string(models.SubscriptionActive)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sub, true, nil
}

func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var status string
	var trialStart, trialEnd, endDate sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.PlanID, &status, &sub.IsTrial,
		&trialStart, &trialEnd, &sub.StartDate, &endDate); err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatus(status)
	if trialStart.Valid {
		sub.TrialStartDate = &trialStart.Time
	}
	if trialEnd.Valid {
		sub.TrialEndDate = &trialEnd.Time
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	return sub, nil
}

// ConvertTrialToSubscription переводит пробную подписку в оплаченную:
// снимает is_trial, ставит статус active и заданную дату окончания.
// Даты пробного периода сохраняются как след использованного пробного
// периода, по ним работает HasTrialSubscription.
//
// Предикаты user_uid и is_trial делают операцию строго "свой действующий
// пробный период": чужая, уже оплаченная или несуществующая подписка
// дают ErrTrialNotFound.
func (s *Storage) ConvertTrialToSubscription(ctx context.Context, id int, userUID string, endDate time.Time) error {
	const op = "storage.ConvertTrialToSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET is_trial = FALSE,
			      status = $1,
			      end_date = $2
			  WHERE id = $3 AND user_uid = $4 AND is_trial`
	res, err := s.DB.ExecContext(ctx, query, string(models.SubscriptionActive), endDate, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrTrialNotFound)
	}
	return nil
}

// FindTrialsExpiringWithin находит действующие пробные подписки,
// заканчивающиеся в ближайшие days дней, вместе с данными пользователей.
func (s *Storage) FindTrialsExpiringWithin(ctx context.Context, days int) ([]*models.TrialExpiryNotice, error) {
	const op = "storage.FindTrialsExpiringWithin"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.username, s.trial_end_date
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  WHERE s.is_trial
			    AND s.status = $1
			    AND s.trial_end_date::DATE <= CURRENT_DATE + $2::INT
			    AND s.trial_end_date::DATE >= CURRENT_DATE;`
	rows, err := s.DB.QueryContext(ctx, query, string(models.SubscriptionActive), days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TrialExpiryNotice
	for rows.Next() {
		var n models.TrialExpiryNotice
		if err = rows.Scan(&n.Email, &n.Username, &n.TrialEndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindTrialsExpiredToday находит пробные подписки, истёкшие сегодня.
// Статус подписки не меняется: истечение вычисляется лениво по датам,
// выборка нужна только для уведомлений.
func (s *Storage) FindTrialsExpiredToday(ctx context.Context) ([]*models.TrialExpiryNotice, error) {
	const op = "storage.FindTrialsExpiredToday"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.username, s.trial_end_date
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  WHERE s.is_trial
			    AND s.status = $1
			    AND s.trial_end_date < NOW()
			    AND s.trial_end_date::DATE = CURRENT_DATE;`
	rows, err := s.DB.QueryContext(ctx, query, string(models.SubscriptionActive))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TrialExpiryNotice
	for rows.Next() {
		var n models.TrialExpiryNotice
		if err = rows.Scan(&n.Email, &n.Username, &n.TrialEndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
