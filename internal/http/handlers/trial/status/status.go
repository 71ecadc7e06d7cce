// Package status реализует HTTP-обработчик чтения состояния пробного периода.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tresoflow/entitlement-service/internal/http/middlewarectx"
	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/models"
)

// TrialService определяет метод чтения состояния пробного периода.
type TrialService interface {
	GetTrialStatus(ctx context.Context, userUID string) models.TrialState
}

// Handler обрабатывает HTTP-запросы состояния пробного периода.
type Handler struct {
	log    *slog.Logger
	trials TrialService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, trials TrialService) *Handler {
	return &Handler{
		log:    log,
		trials: trials,
	}
}

// ServeHTTP godoc
// @Summary Состояние пробного периода
// @Description Возвращает оставшиеся дни и степень срочности пробного периода
// @Tags Trials
// @Produce  json
// @Success 200 {object} models.TrialState "Состояние пробного периода"
// @Failure 401 {object} response.ErrorResponse "Нет данных пользователя в контексте"
// @Security BearerAuth
// @Router /trials/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.status"

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

	state := h.trials.GetTrialStatus(r.Context(), userUID)

	log.Info("loaded trial status",
		slog.String("user_uid", userUID),
		slog.Bool("is_trial_active", state.IsTrialActive),
		slog.Int("days_left", state.DaysLeft))
	render.JSON(w, r, response.StatusOKWithData(state))
}
