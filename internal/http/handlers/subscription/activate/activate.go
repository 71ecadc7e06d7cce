// Package activate реализует HTTP-обработчик активации подписки после оплаты.
//
// Конвертирует пробную подписку в оплаченную и переводит аккаунт
// пользователя в статус active с новой датой окончания. Конвертировать
// можно только собственную пробную подписку: чужой или несуществующий
// ID возвращает 404.
package activate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/tresoflow/entitlement-service/internal/http/middlewarectx"
	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/services/trial"
)

// TrialService определяет метод конвертации пробной подписки.
type TrialService interface {
	ConvertTrialToSubscription(ctx context.Context, userUID string, subscriptionID int, endDate time.Time) (*models.Subscription, error)
}

// AccountService определяет метод активации аккаунта пользователя.
type AccountService interface {
	ActivateForUser(ctx context.Context, userUID string, validUntil time.Time) error
}

// Handler обрабатывает HTTP-запросы активации подписки.
type Handler struct {
	log      *slog.Logger
	trials   TrialService
	accounts AccountService
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, trials TrialService, accounts AccountService) *Handler {
	return &Handler{
		log:      log,
		trials:   trials,
		accounts: accounts,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Активировать подписку после оплаты
// @Description Конвертирует пробную подписку в оплаченную и активирует аккаунт
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummyActivate true "Данные активации (дата в формате 02-01-2006)"
// @Success 200 {object} map[string]any "Подписка активирована"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или формат даты"
// @Failure 401 {object} response.ErrorResponse "Нет данных пользователя в контексте"
// @Failure 404 {object} response.ErrorResponse "Пробная подписка не найдена у пользователя"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка активации"
// @Security BearerAuth
// @Router /subscriptions/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.activate"

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

	var req models.DummyActivate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	endDate, err := time.Parse("02-01-2006", req.EndDate)
	if err != nil {
		log.Error("invalid end date format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid end date format, expected 02-01-2006"))
		return
	}

	sub, err := h.trials.ConvertTrialToSubscription(r.Context(), userUID, req.SubscriptionID, endDate)
	if err != nil {
		if errors.Is(err, trial.ErrTrialNotFound) {
			log.Error("trial subscription not found for user", sl.Err(err),
				slog.Int("subscription_id", req.SubscriptionID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial subscription not found"))
			return
		}
		log.Error("failed to convert trial to subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to activate subscription"))
		return
	}

	if err := h.accounts.ActivateForUser(r.Context(), userUID, endDate); err != nil {
		log.Error("failed to activate account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to activate account"))
		return
	}

	log.Info("activated subscription",
		slog.Int("subscription_id", sub.ID), slog.String("user_uid", userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": sub.ID,
		"status":          sub.Status,
		"end_date":        sub.EndDate,
	}))
}
