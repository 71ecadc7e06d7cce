package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/services/account"
)

// AccountService определяет интерфейс для получения статуса аккаунта.
type AccountService interface {
	GetAccountStatus(ctx context.Context, userUID string) (models.AccountStatus, error)
}

// RoleResolver определяет интерфейс для вычисления эффективной роли
// пользователя с учётом назначенных superadmin-идентичностей.
type RoleResolver interface {
	EffectiveRole(ctx context.Context, userUID, email string) models.Role
}

// AccountStatusMiddleware создает middleware, блокирующий операции записи
// для истёкших аккаунтов. Superadmin проходит гейт всегда; роль берётся
// из резолвера, а не из JWT-клейма, чтобы назначенная superadmin-идентичность
// действовала независимо от сохранённой записи о роли.
func AccountStatusMiddleware(log *slog.Logger, accService AccountService, roles RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			email, _ := r.Context().Value(Email).(string)
			role := roles.EffectiveRole(r.Context(), userUID, email)

			status, err := accService.GetAccountStatus(r.Context(), userUID)
			if err != nil {
				log.Error("failed to get account status", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !account.CanWrite(status, role) {
				log.Error("account expired, access denied")
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("account expired, access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
