package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tresoflow/entitlement-service/internal/models"
)

func TestStorage_CheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := CheckDatabaseReady(storage)
	require.NoError(t, err)
}

func TestStorage_CreateAccountAndLookup(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)

	trialStart := time.Now().UTC()
	trialEnd := trialStart.AddDate(0, 0, 14)
	accountUID, err := storage.CreateAccount(context.Background(), models.Account{
		Name:           "Boulangerie Martin",
		Status:         models.StatusTrial,
		PlanID:         1,
		TrialStartDate: &trialStart,
		TrialEndDate:   &trialEnd,
	})
	require.NoError(t, err)
	require.NotEmpty(t, accountUID)

	userUID := factory.CreateUser(t, accountUID, "martin@example.com", "martin", "admin")
	verify.VerifyUserExists(t, userUID)

	acc, err := storage.GetAccountByUserUID(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, accountUID, acc.UID)
	assert.Equal(t, models.StatusTrial, acc.Status)
	assert.Equal(t, 1, acc.PlanID)
	require.NotNil(t, acc.TrialEndDate)
	assert.WithinDuration(t, trialEnd, *acc.TrialEndDate, time.Second)

	err = storage.ActivateAccount(context.Background(), accountUID,
		time.Now().UTC(), time.Now().UTC().AddDate(1, 0, 0))
	require.NoError(t, err)
	verify.VerifyAccountStatus(t, accountUID, models.StatusActive)

	err = storage.UpdateAccountStatus(context.Background(), accountUID, models.StatusExpired)
	require.NoError(t, err)
	verify.VerifyAccountStatus(t, accountUID, models.StatusExpired)
}

func TestStorage_RegisterUserAndRoles(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	accountUID := factory.CreateAccount(t, "Cabinet Durand", "trial", 1)

	userUID, err := storage.RegisterUser(context.Background(), models.User{
		AccountUID:   accountUID,
		Email:        "durand@example.com",
		Username:     "durand",
		PasswordHash: "hashedpassword",
		Role:         models.DefaultRole,
	})
	require.NoError(t, err)
	require.NotEmpty(t, userUID)

	user, err := storage.GetUserByUsername(context.Background(), "durand")
	require.NoError(t, err)
	assert.Equal(t, userUID, user.UID)
	assert.Equal(t, "durand@example.com", user.Email)
	assert.Equal(t, models.DefaultRole, user.Role)

	role, found, err := storage.GetUserRole(context.Background(), userUID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.DefaultRole, role)

	// Неизвестный UID не даёт ошибку, только found = false
	_, found, err = storage.GetUserRole(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := storage.SuperadminExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	err = storage.AssignRole(context.Background(), userUID, models.RoleSuperadmin)
	require.NoError(t, err)

	exists, err = storage.SuperadminExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := storage.CountAccountUsers(context.Background(), accountUID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_PermissionsCatalog(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	perms, err := storage.ListPermissions(context.Background())
	require.NoError(t, err)
	// 8 страниц на 5 действий
	assert.Len(t, perms, 40)

	id, found, err := storage.GetPermissionID(context.Background(),
		models.PageDashboard, models.ActionAccess)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Positive(t, id)

	_, found, err = storage.GetPermissionID(context.Background(),
		models.Page("factures"), models.ActionAccess)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_UpsertRolePermission(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	id, found, err := storage.GetPermissionID(context.Background(),
		models.PageEncaissements, models.ActionExport)
	require.NoError(t, err)
	require.True(t, found)

	grant := models.RolePermission{Role: models.RoleEditeur, PermissionID: id, Granted: true}
	err = storage.UpsertRolePermission(context.Background(), grant)
	require.NoError(t, err)

	grants, err := storage.ListRolePermissions(context.Background(), models.RoleEditeur)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Granted)

	// Повторный upsert по тому же ключу перезаписывает granted
	grant.Granted = false
	err = storage.UpsertRolePermission(context.Background(), grant)
	require.NoError(t, err)

	grants, err = storage.ListRolePermissions(context.Background(), models.RoleEditeur)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.False(t, grants[0].Granted)
}

func TestStorage_UpsertUserPermission(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	accountUID := factory.CreateAccount(t, "SARL Petit", "trial", 1)
	userUID := factory.CreateUser(t, accountUID, "petit@example.com", "petit", "collaborateur")

	id, found, err := storage.GetPermissionID(context.Background(),
		models.PageParametres, models.ActionEdit)
	require.NoError(t, err)
	require.True(t, found)

	override := models.UserPermission{UserUID: userUID, PermissionID: id, Granted: true}
	err = storage.UpsertUserPermission(context.Background(), override)
	require.NoError(t, err)

	overrides, err := storage.ListUserPermissions(context.Background(), userUID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, userUID, overrides[0].UserUID)
	assert.True(t, overrides[0].Granted)

	override.Granted = false
	err = storage.UpsertUserPermission(context.Background(), override)
	require.NoError(t, err)

	overrides, err = storage.ListUserPermissions(context.Background(), userUID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.False(t, overrides[0].Granted)
}

func TestStorage_TrialSubscriptionLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)
	accountUID := factory.CreateAccount(t, "EURL Bernard", "trial", 1)
	userUID := factory.CreateUser(t, accountUID, "bernard@example.com", "bernard", "admin")

	used, err := storage.HasTrialSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.False(t, used)

	start := time.Now().UTC()
	end := start.AddDate(0, 0, 14)
	sub := models.Subscription{
		UserUID:        userUID,
		PlanID:         1,
		Status:         models.SubscriptionActive,
		IsTrial:        true,
		TrialStartDate: &start,
		TrialEndDate:   &end,
		StartDate:      start,
	}
	id, err := storage.CreateSubscription(context.Background(), sub)
	require.NoError(t, err)
	require.Positive(t, id)

	// Частичный уникальный индекс закрывает гонку двух запусков
	_, err = storage.CreateSubscription(context.Background(), sub)
	require.ErrorIs(t, err, ErrDuplicateTrial)

	used, err = storage.HasTrialSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.True(t, used)

	got, found, err := storage.GetActiveSubscription(context.Background(), userUID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, got.ID)
	assert.True(t, got.IsTrial)
	require.NotNil(t, got.TrialEndDate)
	assert.WithinDuration(t, end, *got.TrialEndDate, time.Second)

	// Чужой пользователь не может конвертировать подписку по угаданному ID
	strangerUID := factory.CreateUser(t, accountUID, "roux@example.com", "roux", "utilisateur")
	endDate := start.AddDate(1, 0, 0)
	err = storage.ConvertTrialToSubscription(context.Background(), id, strangerUID, endDate)
	require.ErrorIs(t, err, ErrTrialNotFound)
	verify.VerifySubscriptionStatus(t, id, models.SubscriptionActive, true)

	err = storage.ConvertTrialToSubscription(context.Background(), id, userUID, endDate)
	require.NoError(t, err)
	verify.VerifySubscriptionStatus(t, id, models.SubscriptionActive, false)

	// Уже оплаченная подписка не конвертируется повторно
	err = storage.ConvertTrialToSubscription(context.Background(), id, userUID, endDate.AddDate(1, 0, 0))
	require.ErrorIs(t, err, ErrTrialNotFound)

	// Несуществующий ID даёт ту же типизированную ошибку
	err = storage.ConvertTrialToSubscription(context.Background(), 999999, userUID, endDate)
	require.ErrorIs(t, err, ErrTrialNotFound)

	converted, err := storage.GetSubscription(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, converted.IsTrial)
	require.NotNil(t, converted.EndDate)
	assert.WithinDuration(t, endDate, *converted.EndDate, time.Second)
	// Даты пробного периода остаются как след использованного пробного периода
	require.NotNil(t, converted.TrialStartDate)

	used, err = storage.HasTrialSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.True(t, used, "converted trial still counts as used")
}

func TestStorage_GetActiveSubscription_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	accountUID := factory.CreateAccount(t, "SAS Moreau", "trial", 1)
	userUID := factory.CreateUser(t, accountUID, "moreau@example.com", "moreau", "admin")

	_, found, err := storage.GetActiveSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_FindTrialsExpiringWithin(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	accountUID := factory.CreateAccount(t, "SCI Laurent", "trial", 1)

	soonUID := factory.CreateUser(t, accountUID, "soon@example.com", "soonuser", "admin")
	farUID := factory.CreateUser(t, accountUID, "far@example.com", "faruser", "utilisateur")

	now := time.Now().UTC()
	factory.CreateTrialSubscription(t, soonUID, 1, now.AddDate(0, 0, -12), now.AddDate(0, 0, 2))
	factory.CreateTrialSubscription(t, farUID, 1, now, now.AddDate(0, 0, 14))

	notices, err := storage.FindTrialsExpiringWithin(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "soon@example.com", notices[0].Email)
	assert.Equal(t, "soonuser", notices[0].Username)
}

func TestStorage_GetPlans(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	plans, err := storage.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 3)

	starter, err := storage.GetPlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "starter", starter.Name)
	assert.Equal(t, 3, starter.MaxUsers)
	assert.True(t, starter.TrialEnabled)
	assert.Equal(t, 14, starter.TrialDays)

	enterprise, err := storage.GetPlan(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, enterprise.TrialEnabled)
	// NULL trial_days читается как ноль
	assert.Zero(t, enterprise.TrialDays)
	assert.InDelta(t, 149.90, enterprise.PriceMonthly, 0.001)
}
