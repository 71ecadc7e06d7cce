// Package check реализует HTTP-обработчик точечной проверки разрешения.
//
// Неизвестная пара страница/действие не является ошибкой: проверка
// возвращает allowed=false (отказ по умолчанию).
package check

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

// EntitlementService определяет метод точечной проверки разрешения.
type EntitlementService interface {
	Check(ctx context.Context, userUID, email string, page models.Page, action models.Action) (bool, error)
}

// Handler обрабатывает HTTP-запросы проверки разрешения.
type Handler struct {
	log          *slog.Logger
	entitlements EntitlementService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, entitlements EntitlementService) *Handler {
	return &Handler{
		log:          log,
		entitlements: entitlements,
	}
}

// ServeHTTP godoc
// @Summary Проверка разрешения на действие
// @Description Проверяет право текущего пользователя на действие над страницей
// @Tags Entitlements
// @Produce  json
// @Param page query string true "Страница"
// @Param action query string true "Действие"
// @Success 200 {object} map[string]any "Результат проверки"
// @Failure 400 {object} response.ErrorResponse "Не указаны page или action"
// @Failure 401 {object} response.ErrorResponse "Нет данных пользователя в контексте"
// @Failure 500 {object} response.ErrorResponse "Ошибка резолвера"
// @Security BearerAuth
// @Router /permissions/check [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.check"

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
	email, _ := r.Context().Value(middlewarectx.Email).(string)

	page := r.URL.Query().Get("page")
	action := r.URL.Query().Get("action")
	if page == "" || action == "" {
		log.Error("missing page or action query parameter")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("query parameters page and action are required"))
		return
	}

	allowed, err := h.entitlements.Check(r.Context(), userUID, email, models.Page(page), models.Action(action))
	if err != nil {
		log.Error("failed to check permission", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to check permission"))
		return
	}

	log.Info("checked permission",
		slog.String("page", page), slog.String("action", action), slog.Bool("allowed", allowed))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"page":    page,
		"action":  action,
		"allowed": allowed,
	}))
}
