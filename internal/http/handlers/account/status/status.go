// Package status реализует HTTP-обработчик чтения статуса аккаунта.
//
// Статус вычисляется лениво по датам на каждый запрос, вместе с ним
// возвращаются квоты тарифного плана.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tresoflow/entitlement-service/internal/http/middlewarectx"
	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
)

// AccountService определяет метод чтения статуса аккаунта с планом.
type AccountService interface {
	Status(ctx context.Context, userUID string) (models.AccountStatus, *models.Plan, error)
}

// Handler обрабатывает HTTP-запросы статуса аккаунта.
type Handler struct {
	log      *slog.Logger
	accounts AccountService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, accounts AccountService) *Handler {
	return &Handler{
		log:      log,
		accounts: accounts,
	}
}

// ServeHTTP godoc
// @Summary Статус аккаунта
// @Description Возвращает эффективный статус аккаунта и квоты тарифного плана
// @Tags Account
// @Produce  json
// @Success 200 {object} map[string]any "Статус аккаунта"
// @Failure 401 {object} response.ErrorResponse "Нет данных пользователя в контексте"
// @Failure 500 {object} response.ErrorResponse "Ошибка чтения аккаунта"
// @Security BearerAuth
// @Router /account [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("missing user uid in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("missing user uid"))
		return
	}

	status, plan, err := h.accounts.Status(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load account status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load account status"))
		return
	}

	log.Info("loaded account status",
		slog.String("user_uid", userUID), slog.String("status", string(status)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": status,
		"plan":   plan,
	}))
}
