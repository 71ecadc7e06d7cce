// Package trial содержит бизнес-логику пробного периода: вычисление
// состояния по датам, запуск пробной подписки и конвертацию пробной
// подписки в оплаченную.
//
// Пути чтения деградируют к состоянию "не пробный аккаунт" и ошибок
// не возвращают; типизированные ошибки поднимают только операции записи.
package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/storage/repository"
)

// ErrTrialAlreadyUsed возвращается при попытке запустить второй пробный
// период: грант пробной подписки допускается один раз за всё время жизни
// пользователя, независимо от статуса прошлой пробной подписки.
var ErrTrialAlreadyUsed = errors.New("trial already used")

// ErrTrialNotAvailable возвращается, когда тарифный план не поддерживает
// пробный период.
var ErrTrialNotAvailable = errors.New("trial not available for plan")

// ErrTrialNotFound возвращается при конвертации, когда у пользователя нет
// действующей пробной подписки с таким ID: чужая подписка, уже оплаченная
// или несуществующая.
var ErrTrialNotFound = errors.New("trial subscription not found")

// TrialLengthDays — фактическая длина пробного периода.
//
// Поле plan.trial_days загружается и валидируется, но на длину периода
// не влияет: исторически используется фиксированная константа. Сюда же
// подставляется plan.TrialDays, если поведение решат исправить.
const TrialLengthDays = 14

// UrgentThresholdDays — порог в днях, после которого состояние пробного
// периода считается срочным.
const UrgentThresholdDays = 3

// EvaluateTrial вычисляет состояние пробного периода на момент now.
// Чистая функция над датами.
//
// nil trialEnd означает, что аккаунт не пробный. Ненулевая дата всегда
// даёт IsTrialActive = true: истечение выражается нулём оставшихся дней
// и уровнем expired, а не сбросом даты.
func EvaluateTrial(trialEnd *time.Time, now time.Time) models.TrialState {
	if trialEnd == nil {
		return models.TrialState{IsTrialActive: false}
	}

	daysLeft := 0
	if remaining := trialEnd.Sub(now); remaining > 0 {
		daysLeft = int((remaining + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	}

	urgency := models.UrgencyNormal
	switch {
	case daysLeft <= 0:
		urgency = models.UrgencyExpired
	case daysLeft <= UrgentThresholdDays:
		urgency = models.UrgencyUrgent
	}

	return models.TrialState{
		IsTrialActive: true,
		DaysLeft:      daysLeft,
		Urgency:       urgency,
	}
}

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// HasTrialSubscription сообщает, была ли у пользователя когда-либо
	// пробная подписка, независимо от её текущего статуса.
	HasTrialSubscription(ctx context.Context, userUID string) (bool, error)
	// GetPlan возвращает тарифный план по ID.
	GetPlan(ctx context.Context, planID int) (*models.Plan, error)
	// CreateSubscription сохраняет подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	// GetSubscription возвращает подписку по ID.
	GetSubscription(ctx context.Context, id int) (*models.Subscription, error)
	// GetActiveSubscription возвращает действующую подписку пользователя;
	// false — действующей подписки нет.
	GetActiveSubscription(ctx context.Context, userUID string) (*models.Subscription, bool, error)
	// ConvertTrialToSubscription переводит пробную подписку пользователя
	// userUID в оплаченную: снимает is_trial, ставит статус active и
	// заданную дату окончания. Даты пробного периода сохраняются как след
	// использованного пробного периода. Подписка другого пользователя или
	// уже оплаченная дают ErrTrialNotFound.
	ConvertTrialToSubscription(ctx context.Context, id int, userUID string, endDate time.Time) error
}

// Service реализует операции жизненного цикла пробного периода.
type Service struct {
	repo SubscriptionRepository
	log  *slog.Logger
	now  func() time.Time
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// StartTrial запускает пробный период пользователя на плане planID.
//
// Проверка "один пробный период за жизнь" выполняется и здесь, и частичным
// уникальным индексом в хранилище: гонка двух одновременных запусков
// разрешается на уровне БД и также выражается ErrTrialAlreadyUsed.
func (s *Service) StartTrial(ctx context.Context, userUID string, planID int) (*models.Subscription, error) {
	const op = "trial.StartTrial"

	used, err := s.repo.HasTrialSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if used {
		return nil, fmt.Errorf("%s: %w", op, ErrTrialAlreadyUsed)
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if plan == nil || !plan.TrialEnabled || plan.TrialDays <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrTrialNotAvailable)
	}

	start := s.now().UTC()
	end := start.AddDate(0, 0, TrialLengthDays)
	sub := models.Subscription{
		UserUID:        userUID,
		PlanID:         planID,
		Status:         models.SubscriptionActive,
		IsTrial:        true,
		TrialStartDate: &start,
		TrialEndDate:   &end,
		StartDate:      start,
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTrial) {
			return nil, fmt.Errorf("%s: %w", op, ErrTrialAlreadyUsed)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.ID = id

	s.log.Info("started trial subscription",
		slog.String("user_uid", userUID), slog.Int("plan_id", planID),
		slog.Time("trial_end", end))
	return &sub, nil
}

// GetTrialStatus возвращает состояние пробного периода пользователя.
// Отсутствие подписки или сбой чтения дают "не пробный аккаунт".
func (s *Service) GetTrialStatus(ctx context.Context, userUID string) models.TrialState {
	sub, found, err := s.repo.GetActiveSubscription(ctx, userUID)
	if err != nil {
		s.log.Warn("failed to load active subscription", sl.Err(err))
		return models.TrialState{IsTrialActive: false}
	}
	if !found || !sub.IsTrial {
		return models.TrialState{IsTrialActive: false}
	}
	return EvaluateTrial(sub.TrialEndDate, s.now())
}

// ConvertTrialToSubscription переводит пробную подписку пользователя
// в оплаченную с заданной датой окончания. Вызывается после подтверждения
// оплаты. Конвертировать можно только собственную действующую пробную
// подписку, иначе возвращается ErrTrialNotFound.
func (s *Service) ConvertTrialToSubscription(ctx context.Context, userUID string, subscriptionID int, endDate time.Time) (*models.Subscription, error) {
	const op = "trial.ConvertTrialToSubscription"

	if err := s.repo.ConvertTrialToSubscription(ctx, subscriptionID, userUID, endDate); err != nil {
		if errors.Is(err, repository.ErrTrialNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTrialNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("converted trial to paid subscription",
		slog.String("user_uid", userUID), slog.Int("id", subscriptionID),
		slog.Time("end_date", endDate))
	return sub, nil
}
