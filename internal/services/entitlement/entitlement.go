// Package entitlement содержит бизнес-логику вычисления эффективных прав
// пользователя: базовая роль, квоты тарифного плана и проверка разрешений
// по каталогу страница × действие.
//
// Само вычисление (Resolve) — чистая функция над уже загруженными данными,
// без обращений к хранилищу. Загрузкой данных, кешированием и записью
// грантов занимается Service.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
)

// ErrConfiguration означает, что каталог разрешений недоступен.
// Локально не восстанавливается: вызывающая сторона показывает
// деградированное состояние "permissions unavailable".
var ErrConfiguration = errors.New("permission catalog unavailable")

// ErrUnknownPermission возвращается при попытке изменить грант
// на разрешение, отсутствующее в каталоге.
var ErrUnknownPermission = errors.New("unknown permission")

// SuperadminMaxUsers — сентинел квоты пользователей для superadmin.
// Большое конечное число вместо бесконечности, чтобы арифметика
// сравнения квот оставалась безопасной.
const SuperadminMaxUsers = 1000

// FailClosedMaxUsers — квота по умолчанию при недоступных данных плана.
const FailClosedMaxUsers = 1

var permissionDenied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "entitlement_permission_denied_total",
	Help: "Количество отказов при проверке разрешений, по страницам и действиям.",
}, []string{"page", "action"})

// ResolveInput — все данные, необходимые для вычисления снимка прав.
// Отсутствующие необязательные данные (nil, пустые срезы) — валидный вход:
// резолвер деградирует к запрещающим значениям, а не возвращает ошибку.
type ResolveInput struct {
	UserUID          string
	Email            string
	RoleRecord       *models.Role             // Назначенная роль; nil, если записи нет
	SuperadminExists bool                     // Есть ли superadmin где-либо в системе
	SuperadminEmails []string                 // Назначенные superadmin-идентичности
	Catalog          []models.Permission      // Каталог разрешений
	RoleGrants       []models.RolePermission  // Гранты резолвнутой роли
	UserOverrides    []models.UserPermission  // Персональные переопределения
	Plan             *models.Plan             // Тарифный план аккаунта; nil, если недоступен
	CurrentUsers     int                      // Текущее число пользователей аккаунта
}

// BaseRole определяет базовую роль пользователя.
//
// Порядок: назначенная superadmin-идентичность (безусловно, поверх любых
// записей); сохранённая запись о роли; бутстрап первого пользователя,
// если в системе нет ни одного superadmin; иначе роль по умолчанию.
func BaseRole(in ResolveInput) models.Role {
	for _, email := range in.SuperadminEmails {
		if email != "" && strings.EqualFold(email, in.Email) {
			return models.RoleSuperadmin
		}
	}
	if in.RoleRecord != nil && in.RoleRecord.IsValid() {
		return *in.RoleRecord
	}
	if !in.SuperadminExists {
		return models.RoleSuperadmin
	}
	return models.DefaultRole
}

// Resolve вычисляет снимок прав пользователя. Чистая функция:
// одинаковый вход даёт одинаковый снимок, побочных эффектов нет.
// Запись роли при бутстрапе выполняет вызывающая сторона
// через Service.BootstrapFirstSuperadmin.
func Resolve(in ResolveInput) models.EntitlementSnapshot {
	role := BaseRole(in)

	maxUsers := FailClosedMaxUsers
	switch {
	case role == models.RoleSuperadmin:
		maxUsers = SuperadminMaxUsers
	case in.Plan != nil:
		maxUsers = in.Plan.MaxUsers
	}

	canManageUsers := role == models.RoleAdmin || role == models.RoleSuperadmin
	canAddUsers := canManageUsers && in.CurrentUsers < maxUsers

	return models.NewEntitlementSnapshot(role, maxUsers, in.CurrentUsers, canAddUsers,
		in.Catalog, in.RoleGrants, in.UserOverrides)
}

// Repository определяет методы для работы с ролями, грантами и квотами
// в хранилище.
type Repository interface {
	// GetUserRole возвращает назначенную роль пользователя; false — записи нет.
	GetUserRole(ctx context.Context, userUID string) (models.Role, bool, error)
	// SuperadminExists сообщает, есть ли в системе хотя бы один superadmin.
	SuperadminExists(ctx context.Context) (bool, error)
	// AssignRole назначает пользователю роль.
	AssignRole(ctx context.Context, userUID string, role models.Role) error
	// ListPermissions возвращает каталог разрешений.
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	// GetPermissionID возвращает ID разрешения по паре страница-действие.
	GetPermissionID(ctx context.Context, page models.Page, action models.Action) (int, bool, error)
	// ListRolePermissions возвращает гранты роли.
	ListRolePermissions(ctx context.Context, role models.Role) ([]models.RolePermission, error)
	// ListUserPermissions возвращает персональные переопределения пользователя.
	ListUserPermissions(ctx context.Context, userUID string) ([]models.UserPermission, error)
	// UpsertRolePermission создаёт или обновляет грант роли.
	UpsertRolePermission(ctx context.Context, grant models.RolePermission) error
	// UpsertUserPermission создаёт или обновляет переопределение пользователя.
	UpsertUserPermission(ctx context.Context, override models.UserPermission) error
	// GetAccountByUserUID возвращает аккаунт, которому принадлежит пользователь.
	GetAccountByUserUID(ctx context.Context, userUID string) (*models.Account, error)
	// GetPlan возвращает тарифный план по ID.
	GetPlan(ctx context.Context, planID int) (*models.Plan, error)
	// CountAccountUsers возвращает число пользователей аккаунта.
	CountAccountUsers(ctx context.Context, accountUID string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Service загружает данные для резолвера, кеширует каталог и гранты
// и выполняет операции записи грантов.
type Service struct {
	repo             Repository
	cache            Cache
	log              *slog.Logger
	superadminEmails []string
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger, superadminEmails []string) *Service {
	return &Service{
		repo:             repo,
		cache:            cache,
		log:              log,
		superadminEmails: superadminEmails,
	}
}

const (
	catalogCacheKey = "permissions:catalog"
	catalogCacheTTL = time.Hour
	grantsCacheTTL  = 5 * time.Minute
)

// ResolveForUser загружает входные данные и вычисляет снимок прав.
//
// Недоступность каталога — единственная невосстановимая ошибка
// (ErrConfiguration). Остальные сбои чтения деградируют к запрещающим
// значениям: роль по умолчанию, пустые гранты, квота FailClosedMaxUsers.
func (s *Service) ResolveForUser(ctx context.Context, userUID, email string) (models.EntitlementSnapshot, error) {
	const op = "entitlement.ResolveForUser"

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return models.EntitlementSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	in := s.roleInput(ctx, userUID, email)
	in.Catalog = catalog

	role := BaseRole(in)

	in.RoleGrants = s.loadRoleGrants(ctx, role)
	in.UserOverrides = s.loadUserOverrides(ctx, userUID)

	if account, err := s.repo.GetAccountByUserUID(ctx, userUID); err != nil {
		s.log.Warn("failed to load account, quotas fail closed", sl.Err(err))
	} else if account != nil {
		if plan, err := s.repo.GetPlan(ctx, account.PlanID); err != nil {
			s.log.Warn("failed to load plan, quotas fail closed", sl.Err(err))
		} else {
			in.Plan = plan
		}
		if count, err := s.repo.CountAccountUsers(ctx, account.UID); err != nil {
			s.log.Warn("failed to count account users", sl.Err(err))
		} else {
			in.CurrentUsers = count
		}
	}

	return Resolve(in), nil
}

// roleInput загружает данные, необходимые для определения базовой роли.
// Сбои чтения деградируют к запрещающим значениям.
func (s *Service) roleInput(ctx context.Context, userUID, email string) ResolveInput {
	in := ResolveInput{
		UserUID:          userUID,
		Email:            email,
		SuperadminEmails: s.superadminEmails,
		// Считаем, что superadmin есть, пока не доказано обратное:
		// бутстрап не должен срабатывать из-за сбоя чтения.
		SuperadminExists: true,
	}

	if role, found, err := s.repo.GetUserRole(ctx, userUID); err != nil {
		s.log.Warn("failed to load user role, falling back to default", sl.Err(err))
	} else if found {
		in.RoleRecord = &role
	}

	if in.RoleRecord == nil {
		exists, err := s.repo.SuperadminExists(ctx)
		if err != nil {
			s.log.Warn("failed to check superadmin existence", sl.Err(err))
		} else {
			in.SuperadminExists = exists
		}
	}
	return in
}

// EffectiveRole возвращает базовую роль пользователя с учётом назначенных
// superadmin-идентичностей. Административные гейты используют её вместо
// роли из JWT-клейма: назначенный superadmin проходит проверку независимо
// от сохранённой записи о роли, а отозванная роль перестаёт действовать,
// не дожидаясь перевыпуска токена.
func (s *Service) EffectiveRole(ctx context.Context, userUID, email string) models.Role {
	return BaseRole(s.roleInput(ctx, userUID, email))
}

// Check проверяет право пользователя на действие над страницей.
func (s *Service) Check(ctx context.Context, userUID, email string, page models.Page, action models.Action) (bool, error) {
	snap, err := s.ResolveForUser(ctx, userUID, email)
	if err != nil {
		return false, err
	}
	granted := snap.HasPermission(page, action)
	if !granted {
		permissionDenied.WithLabelValues(string(page), string(action)).Inc()
	}
	return granted, nil
}

// BootstrapFirstSuperadmin назначает пользователя первым superadmin,
// если в системе ещё нет ни одного. Явная операция начальной настройки,
// вызывается один раз при разворачивании, а не внутри резолвера.
// Возвращает true, если назначение произошло.
func (s *Service) BootstrapFirstSuperadmin(ctx context.Context, userUID string) (bool, error) {
	const op = "entitlement.BootstrapFirstSuperadmin"

	exists, err := s.repo.SuperadminExists(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return false, nil
	}
	if err := s.repo.AssignRole(ctx, userUID, models.RoleSuperadmin); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("bootstrapped first superadmin", slog.String("user_uid", userUID))
	return true, nil
}

// UpsertRoleGrant создаёт или обновляет грант роли (last write wins по ключу).
func (s *Service) UpsertRoleGrant(ctx context.Context, req models.DummyRoleGrant) error {
	const op = "entitlement.UpsertRoleGrant"

	role := models.Role(req.Role)
	if !role.IsValid() {
		return fmt.Errorf("%s: invalid role %q", op, req.Role)
	}
	id, found, err := s.repo.GetPermissionID(ctx, models.Page(req.Page), models.Action(req.Action))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return fmt.Errorf("%s: %w: %s/%s", op, ErrUnknownPermission, req.Page, req.Action)
	}
	if err := s.repo.UpsertRolePermission(ctx, models.RolePermission{
		Role:         role,
		PermissionID: id,
		Granted:      req.Granted,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := fmt.Sprintf("grants:role:%s", role)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate role grants cache", slog.String("key", cacheKey), sl.Err(err))
	}
	s.log.Info("upserted role grant",
		slog.String("role", req.Role), slog.String("page", req.Page),
		slog.String("action", req.Action), slog.Bool("granted", req.Granted))
	return nil
}

// UpsertUserOverride создаёт или обновляет персональное переопределение.
func (s *Service) UpsertUserOverride(ctx context.Context, req models.DummyUserGrant) error {
	const op = "entitlement.UpsertUserOverride"

	id, found, err := s.repo.GetPermissionID(ctx, models.Page(req.Page), models.Action(req.Action))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return fmt.Errorf("%s: %w: %s/%s", op, ErrUnknownPermission, req.Page, req.Action)
	}
	if err := s.repo.UpsertUserPermission(ctx, models.UserPermission{
		UserUID:      req.UserUID,
		PermissionID: id,
		Granted:      req.Granted,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := fmt.Sprintf("grants:user:%s", req.UserUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate user grants cache", slog.String("key", cacheKey), sl.Err(err))
	}
	s.log.Info("upserted user override",
		slog.String("user_uid", req.UserUID), slog.String("page", req.Page),
		slog.String("action", req.Action), slog.Bool("granted", req.Granted))
	return nil
}

// ListCatalog возвращает каталог разрешений.
func (s *Service) ListCatalog(ctx context.Context) ([]models.Permission, error) {
	const op = "entitlement.ListCatalog"
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return catalog, nil
}

func (s *Service) loadCatalog(ctx context.Context) ([]models.Permission, error) {
	var catalog []models.Permission
	found, err := s.cache.Get(catalogCacheKey, &catalog)
	if err != nil {
		s.log.Warn("failed to read permission catalog from cache", sl.Err(err))
	}
	if found && len(catalog) > 0 {
		return catalog, nil
	}

	catalog, err = s.repo.ListPermissions(ctx)
	if err != nil {
		s.log.Error("failed to load permission catalog", sl.Err(err))
		return nil, ErrConfiguration
	}
	if len(catalog) == 0 {
		s.log.Error("permission catalog is empty")
		return nil, ErrConfiguration
	}

	if err := s.cache.Set(catalogCacheKey, catalog, catalogCacheTTL); err != nil {
		s.log.Warn("failed to cache permission catalog", sl.Err(err))
	}
	return catalog, nil
}

func (s *Service) loadRoleGrants(ctx context.Context, role models.Role) []models.RolePermission {
	cacheKey := fmt.Sprintf("grants:role:%s", role)
	var grants []models.RolePermission
	found, err := s.cache.Get(cacheKey, &grants)
	if err != nil {
		s.log.Warn("failed to read role grants from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return grants
	}

	grants, err = s.repo.ListRolePermissions(ctx, role)
	if err != nil {
		s.log.Warn("failed to load role grants, denying by default", sl.Err(err))
		return nil
	}
	if err := s.cache.Set(cacheKey, grants, grantsCacheTTL); err != nil {
		s.log.Warn("failed to cache role grants", slog.String("key", cacheKey), sl.Err(err))
	}
	return grants
}

func (s *Service) loadUserOverrides(ctx context.Context, userUID string) []models.UserPermission {
	cacheKey := fmt.Sprintf("grants:user:%s", userUID)
	var overrides []models.UserPermission
	found, err := s.cache.Get(cacheKey, &overrides)
	if err != nil {
		s.log.Warn("failed to read user grants from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return overrides
	}

	overrides, err = s.repo.ListUserPermissions(ctx, userUID)
	if err != nil {
		s.log.Warn("failed to load user overrides, denying by default", sl.Err(err))
		return nil
	}
	if err := s.cache.Set(cacheKey, overrides, grantsCacheTTL); err != nil {
		s.log.Warn("failed to cache user overrides", slog.String("key", cacheKey), sl.Err(err))
	}
	return overrides
}
