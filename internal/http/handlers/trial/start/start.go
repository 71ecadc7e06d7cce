// Package start реализует HTTP-обработчик запуска пробного периода.
//
// Повторная попытка запуска возвращает 409, недоступность пробного
// периода на тарифном плане возвращает 422.
package start

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/tresoflow/entitlement-service/internal/http/middlewarectx"
	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/services/trial"
)

// TrialService определяет метод запуска пробного периода.
type TrialService interface {
	StartTrial(ctx context.Context, userUID string, planID int) (*models.Subscription, error)
}

// Handler обрабатывает HTTP-запросы запуска пробного периода.
type Handler struct {
	log      *slog.Logger
	trials   TrialService
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, trials TrialService) *Handler {
	return &Handler{
		log:      log,
		trials:   trials,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запустить пробный период
// @Description Создает пробную подписку для текущего пользователя
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param request body models.DummyStartTrial true "Тарифный план"
// @Success 200 {object} map[string]any "Пробный период запущен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Нет данных пользователя в контексте"
// @Failure 409 {object} response.ErrorResponse "Пробный период уже использован"
// @Failure 422 {object} response.ErrorResponse "Пробный период недоступен на плане"
// @Failure 500 {object} response.ErrorResponse "Ошибка запуска"
// @Security BearerAuth
// @Router /trials [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.start"

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

	var req models.DummyStartTrial
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

	sub, err := h.trials.StartTrial(r.Context(), userUID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, trial.ErrTrialAlreadyUsed):
			log.Error("trial already used", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("trial already used"))
		case errors.Is(err, trial.ErrTrialNotAvailable):
			log.Error("trial not available on plan", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("trial not available on this plan"))
		default:
			log.Error("failed to start trial", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to start trial"))
		}
		return
	}

	log.Info("started trial",
		slog.String("user_uid", userUID), slog.Int("subscription_id", sub.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": sub.ID,
		"trial_start":     sub.TrialStartDate,
		"trial_end":       sub.TrialEndDate,
	}))
}
