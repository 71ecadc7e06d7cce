// Package auth содержит логику бизнес-уровня для работы с пользователями
// и аутентификацией.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/tresoflow/entitlement-service/internal/lib/jwt"
	"github.com/tresoflow/entitlement-service/internal/lib/password"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/services/trial"
)

// UserRepository описывает контракт для работы с пользователями и аккаунтами
// в базе данных.
type UserRepository interface {
	// CreateAccount сохраняет новый аккаунт и возвращает его UID.
	CreateAccount(ctx context.Context, account models.Account) (string, error)

	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		now:      time.Now,
	}
}

// Register создает аккаунт в статусе trial с вычисленной датой окончания
// и первого пользователя аккаунта с ролью по умолчанию.
func (s *Service) Register(ctx context.Context, email, username, rawPassword, accountName string, planID int) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}

	trialStart := s.now().UTC()
	trialEnd := trialStart.AddDate(0, 0, trial.TrialLengthDays)
	accountUID, err := s.users.CreateAccount(ctx, models.Account{
		Name:           accountName,
		Status:         models.StatusTrial,
		PlanID:         planID,
		TrialStartDate: &trialStart,
		TrialEndDate:   &trialEnd,
	})
	if err != nil {
		return "", err
	}

	user := models.User{
		AccountUID:   accountUID,
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         models.DefaultRole,
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", errors.New("invalid credentials")
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, string(user.Role), user.UID, user.Email)
	if err != nil {
		return "", "", err
	}
	return token, string(user.Role), nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе.
func (s *Service) ValidateToken(_ context.Context, token string) (*models.User, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &models.User{
		UID:      claims.UserUID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     models.Role(claims.Role),
	}, nil
}
