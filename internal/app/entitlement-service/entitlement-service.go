package entitlementservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/tresoflow/entitlement-service/internal/cache"
	"github.com/tresoflow/entitlement-service/internal/config"
	jwtlib "github.com/tresoflow/entitlement-service/internal/lib/jwt"
	"github.com/tresoflow/entitlement-service/internal/migrations"
	accountservice "github.com/tresoflow/entitlement-service/internal/services/account"
	authservice "github.com/tresoflow/entitlement-service/internal/services/auth"
	entservice "github.com/tresoflow/entitlement-service/internal/services/entitlement"
	trialservice "github.com/tresoflow/entitlement-service/internal/services/trial"
	"github.com/tresoflow/entitlement-service/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер ядра прав и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New собирает приложение: хранилище, миграции, кеш, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.New(db, jwtMaker)
	entitlementService := entservice.New(db, cacheRedis, logger, cfg.SuperadminEmails)
	trialService := trialservice.New(db, logger)
	accountService := accountservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger,
		authService, entitlementService, trialService, accountService,
		db, cacheRedis, cfg.DefaultPlanID)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
