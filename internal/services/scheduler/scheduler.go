// Package scheduler периодически находит пробные подписки, входящие
// в срочное окно перед истечением, и публикует уведомления в RabbitMQ.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/tresoflow/entitlement-service/internal/lib/rabbitmq"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/services/trial"
)

// SubscriptionRepository определяет выборку истекающих и истёкших
// пробных подписок.
type SubscriptionRepository interface {
	FindTrialsExpiringWithin(ctx context.Context, days int) ([]*models.TrialExpiryNotice, error)
	FindTrialsExpiredToday(ctx context.Context) ([]*models.TrialExpiryNotice, error)
}

// Service периодически сканирует пробные подписки.
type Service struct {
	repo SubscriptionRepository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// FindExpiringTrials раз в 12 часов находит пробные подписки в срочном окне
// и публикует уведомления в обменник жизненного цикла.
func (s *Service) FindExpiringTrials(ctx context.Context, channel *amqp.Channel) {
	s.runFindExpiringTrials(ctx, channel)
	s.runFindExpiredTrials(ctx, channel)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFindExpiringTrials(ctx, channel)
			s.runFindExpiredTrials(ctx, channel)
		}
	}
}

func (s *Service) runFindExpiringTrials(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting scan for expiring trials")
	notices, err := s.repo.FindTrialsExpiringWithin(ctx, trial.UrgentThresholdDays)
	if err != nil {
		s.log.Error("failed to find expiring trials", sl.Err(err))
		return
	}
	if len(notices) == 0 {
		s.log.Info("no expiring trials found")
		return
	}
	for _, notice := range notices {
		err = rabbitmq.PublishMessage(channel, rabbitmq.LifecycleExchange, "trial.expiring", notice)
		if err != nil {
			s.log.Error("failed to publish notice", sl.Err(err))
		}
	}
	s.log.Info("published trial expiry notices", slog.Int("count", len(notices)))
}

func (s *Service) runFindExpiredTrials(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting scan for expired trials")
	notices, err := s.repo.FindTrialsExpiredToday(ctx)
	if err != nil {
		s.log.Error("failed to find expired trials", sl.Err(err))
		return
	}
	if len(notices) == 0 {
		s.log.Info("no expired trials found")
		return
	}
	for _, notice := range notices {
		err = rabbitmq.PublishMessage(channel, rabbitmq.LifecycleExchange, "trial.expired", notice)
		if err != nil {
			s.log.Error("failed to publish notice", sl.Err(err))
		}
	}
	s.log.Info("published trial expired notices", slog.Int("count", len(notices)))
}
