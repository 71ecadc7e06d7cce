package account

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tresoflow/entitlement-service/internal/models"
)

// MockRepository реализует интерфейс account.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAccount(ctx context.Context, accountUID string) (*models.Account, error) {
	args := m.Called(ctx, accountUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockRepository) GetAccountByUserUID(ctx context.Context, userUID string) (*models.Account, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockRepository) GetPlan(ctx context.Context, planID int) (*models.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockRepository) ActivateAccount(ctx context.Context, accountUID string, activationDate, validUntil time.Time) error {
	args := m.Called(ctx, accountUID, activationDate, validUntil)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func timePtr(t time.Time) *time.Time { return &t }

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		account  *models.Account
		expected models.AccountStatus
	}{
		{
			name:     "nil аккаунт считается истёкшим",
			account:  nil,
			expected: models.StatusExpired,
		},
		{
			name: "действующий пробный период",
			account: &models.Account{
				Status:       models.StatusTrial,
				TrialEndDate: timePtr(now.AddDate(0, 0, 3)),
			},
			expected: models.StatusTrial,
		},
		{
			name: "пробный период с прошедшей датой истёк",
			account: &models.Account{
				Status:       models.StatusTrial,
				TrialEndDate: timePtr(now.AddDate(0, 0, -1)),
			},
			expected: models.StatusExpired,
		},
		{
			name: "активный аккаунт в оплаченном периоде",
			account: &models.Account{
				Status:     models.StatusActive,
				ValidUntil: timePtr(now.AddDate(0, 1, 0)),
			},
			expected: models.StatusActive,
		},
		{
			name: "активный аккаунт с прошедшей датой оплаты истёк",
			account: &models.Account{
				Status:     models.StatusActive,
				ValidUntil: timePtr(now.AddDate(0, 0, -2)),
			},
			expected: models.StatusExpired,
		},
		{
			name: "pending_activation не истекает по датам",
			account: &models.Account{
				Status:       models.StatusPendingActivation,
				TrialEndDate: timePtr(now.AddDate(0, 0, -30)),
			},
			expected: models.StatusPendingActivation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(tt.account, now))
		})
	}
}

func TestCanWrite(t *testing.T) {
	tests := []struct {
		name     string
		status   models.AccountStatus
		role     models.Role
		expected bool
	}{
		{"активный аккаунт пишет", models.StatusActive, models.RoleEditeur, true},
		{"пробный аккаунт пишет", models.StatusTrial, models.RoleUtilisateur, true},
		{"истёкший аккаунт не пишет", models.StatusExpired, models.RoleAdmin, false},
		{"superadmin пишет даже в истёкшем аккаунте", models.StatusExpired, models.RoleSuperadmin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanWrite(tt.status, tt.role))
		})
	}
}

func TestStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("возвращает статус и план", func(t *testing.T) {
		acc := &models.Account{
			UID:          "acc1",
			Status:       models.StatusTrial,
			PlanID:       2,
			TrialEndDate: timePtr(now.AddDate(0, 0, 5)),
		}
		plan := &models.Plan{ID: 2, MaxUsers: 10}

		mockRepo := new(MockRepository)
		mockRepo.On("GetAccountByUserUID", mock.Anything, "u1").Return(acc, nil)
		mockRepo.On("GetPlan", mock.Anything, 2).Return(plan, nil)

		service := New(mockRepo, testLogger())
		service.now = func() time.Time { return now }

		status, gotPlan, err := service.Status(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusTrial, status)
		assert.Equal(t, plan, gotPlan)
	})

	t.Run("сбой чтения плана деградирует к nil плану", func(t *testing.T) {
		acc := &models.Account{UID: "acc1", Status: models.StatusActive, PlanID: 2,
			ValidUntil: timePtr(now.AddDate(0, 1, 0))}

		mockRepo := new(MockRepository)
		mockRepo.On("GetAccountByUserUID", mock.Anything, "u1").Return(acc, nil)
		mockRepo.On("GetPlan", mock.Anything, 2).Return(nil, errors.New("db down"))

		service := New(mockRepo, testLogger())
		service.now = func() time.Time { return now }

		status, gotPlan, err := service.Status(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, status)
		assert.Nil(t, gotPlan)
	})
}

func TestActivateForUser(t *testing.T) {
	validUntil := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("активирует найденный аккаунт", func(t *testing.T) {
		acc := &models.Account{UID: "acc1", Status: models.StatusTrial}

		mockRepo := new(MockRepository)
		mockRepo.On("GetAccountByUserUID", mock.Anything, "u1").Return(acc, nil)
		mockRepo.On("ActivateAccount", mock.Anything, "acc1", mock.AnythingOfType("time.Time"), validUntil).
			Return(nil)

		service := New(mockRepo, testLogger())

		err := service.ActivateForUser(context.Background(), "u1", validUntil)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("аккаунт не найден", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetAccountByUserUID", mock.Anything, "u1").Return(nil, nil)

		service := New(mockRepo, testLogger())

		err := service.ActivateForUser(context.Background(), "u1", validUntil)
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "ActivateAccount")
	})
}
