// Package catalog реализует HTTP-обработчик выдачи каталога разрешений.
package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/models"
)

// EntitlementService определяет метод чтения каталога разрешений.
type EntitlementService interface {
	ListCatalog(ctx context.Context) ([]models.Permission, error)
}

// Handler обрабатывает HTTP-запросы каталога разрешений.
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
// @Summary Каталог разрешений
// @Description Возвращает полный список пар страница/действие
// @Tags Permissions
// @Produce  json
// @Success 200 {object} map[string]any "Каталог разрешений"
// @Failure 500 {object} response.ErrorResponse "Ошибка чтения каталога"
// @Security BearerAuth
// @Router /permissions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.permission.catalog"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	permissions, err := h.entitlements.ListCatalog(r.Context())
	if err != nil {
		log.Error("failed to load permission catalog", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load permission catalog"))
		return
	}

	log.Info("loaded permission catalog", slog.Int("count", len(permissions)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"permissions": permissions,
		"count":       len(permissions),
	}))
}
