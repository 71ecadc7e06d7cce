// Package entitlementservice собирает HTTP-приложение ядра прав:
// маршруты, middleware и жизненный цикл сервера.
package entitlementservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tresoflow/entitlement-service/internal/cache"
	accountstatus "github.com/tresoflow/entitlement-service/internal/http/handlers/account/status"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/auth/login"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/auth/register"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/entitlement/check"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/entitlement/resolve"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/health"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/permission/catalog"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/permission/grantrole"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/permission/grantuser"
	"github.com/tresoflow/entitlement-service/internal/http/handlers/subscription/activate"
	trialstart "github.com/tresoflow/entitlement-service/internal/http/handlers/trial/start"
	trialstatus "github.com/tresoflow/entitlement-service/internal/http/handlers/trial/status"
	"github.com/tresoflow/entitlement-service/internal/http/middlewarectx"
	accountservice "github.com/tresoflow/entitlement-service/internal/services/account"
	authservice "github.com/tresoflow/entitlement-service/internal/services/auth"
	entservice "github.com/tresoflow/entitlement-service/internal/services/entitlement"
	trialservice "github.com/tresoflow/entitlement-service/internal/services/trial"
	"github.com/tresoflow/entitlement-service/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.Service,
	entitlementService *entservice.Service,
	trialService *trialservice.Service,
	accountService *accountservice.Service,
	storage *repository.Storage,
	cacheRedis *cache.Cache,
	defaultPlanID int,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService, entitlementService, defaultPlanID).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger, storage, cacheRedis).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/entitlements", resolve.New(logger, entitlementService, trialService).ServeHTTP)
			r.Get("/permissions", catalog.New(logger, entitlementService).ServeHTTP)
			r.Get("/permissions/check", check.New(logger, entitlementService).ServeHTTP)
			r.Get("/trials/status", trialstatus.New(logger, trialService).ServeHTTP)
			r.Get("/account", accountstatus.New(logger, accountService).ServeHTTP)
			r.Post("/subscriptions/activate", activate.New(logger, trialService, accountService).ServeHTTP)

			// Операции записи требуют действующего аккаунта
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AccountStatusMiddleware(logger, accountService, entitlementService))
				r.Post("/trials", trialstart.New(logger, trialService).ServeHTTP)
				r.Put("/permissions/role", grantrole.New(logger, entitlementService).ServeHTTP)
				r.Put("/permissions/user", grantuser.New(logger, entitlementService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
