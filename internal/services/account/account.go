// Package account содержит бизнес-логику жизненного цикла аккаунта:
// ленивое вычисление статуса по датам, активацию после оплаты и гейт
// доступа для истёкших аккаунтов.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
)

// DeriveStatus вычисляет эффективный статус аккаунта на момент now.
//
// Переходы по датам (trial → expired, active → expired) вычисляются
// при каждом чтении, фонового процесса нет. pending_activation
// переводится в active только явной активацией после оплаты.
func DeriveStatus(acc *models.Account, now time.Time) models.AccountStatus {
	if acc == nil {
		return models.StatusExpired
	}
	switch acc.Status {
	case models.StatusTrial:
		if acc.TrialEndDate != nil && acc.TrialEndDate.Before(now) {
			return models.StatusExpired
		}
	case models.StatusActive:
		if acc.ValidUntil != nil && acc.ValidUntil.Before(now) {
			return models.StatusExpired
		}
	}
	return acc.Status
}

// CanWrite сообщает, разрешены ли аккаунту операции записи,
// требующие действующего плана. Superadmin проходит гейт всегда.
func CanWrite(status models.AccountStatus, role models.Role) bool {
	if role == models.RoleSuperadmin {
		return true
	}
	return status != models.StatusExpired
}

// Repository определяет методы для работы с аккаунтами в хранилище.
type Repository interface {
	// GetAccount возвращает аккаунт по UID.
	GetAccount(ctx context.Context, accountUID string) (*models.Account, error)
	// GetAccountByUserUID возвращает аккаунт, которому принадлежит пользователь.
	GetAccountByUserUID(ctx context.Context, userUID string) (*models.Account, error)
	// GetPlan возвращает тарифный план по ID.
	GetPlan(ctx context.Context, planID int) (*models.Plan, error)
	// ActivateAccount переводит аккаунт в active с датами активации и окончания.
	ActivateAccount(ctx context.Context, accountUID string, activationDate, validUntil time.Time) error
}

// Service реализует операции жизненного цикла аккаунта.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Status возвращает эффективный статус аккаунта пользователя вместе
// с тарифным планом. План может быть nil при сбое чтения — вызывающая
// сторона обязана трактовать это как запрещающие квоты.
func (s *Service) Status(ctx context.Context, userUID string) (models.AccountStatus, *models.Plan, error) {
	const op = "account.Status"

	acc, err := s.repo.GetAccountByUserUID(ctx, userUID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	status := DeriveStatus(acc, s.now())

	var plan *models.Plan
	if acc != nil {
		plan, err = s.repo.GetPlan(ctx, acc.PlanID)
		if err != nil {
			s.log.Warn("failed to load plan for account", sl.Err(err))
			plan = nil
		}
	}
	return status, plan, nil
}

// GetAccountStatus возвращает только эффективный статус аккаунта
// пользователя. Используется HTTP middleware гейта доступа.
func (s *Service) GetAccountStatus(ctx context.Context, userUID string) (models.AccountStatus, error) {
	const op = "account.GetAccountStatus"

	acc, err := s.repo.GetAccountByUserUID(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return DeriveStatus(acc, s.now()), nil
}

// Activate переводит аккаунт в active после подтверждения оплаты
// и устанавливает новую дату окончания оплаченного периода.
func (s *Service) Activate(ctx context.Context, accountUID string, validUntil time.Time) error {
	const op = "account.Activate"

	if err := s.repo.ActivateAccount(ctx, accountUID, s.now().UTC(), validUntil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("activated account",
		slog.String("account_uid", accountUID), slog.Time("valid_until", validUntil))
	return nil
}

// ActivateForUser находит аккаунт пользователя и активирует его.
// Используется HTTP-обработчиком активации, которому известен только UID пользователя.
func (s *Service) ActivateForUser(ctx context.Context, userUID string, validUntil time.Time) error {
	const op = "account.ActivateForUser"

	acc, err := s.repo.GetAccountByUserUID(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if acc == nil {
		return fmt.Errorf("%s: account not found for user %s", op, userUID)
	}
	if err := s.Activate(ctx, acc.UID, validUntil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
