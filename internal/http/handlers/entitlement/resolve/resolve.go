// Package resolve реализует HTTP-обработчик выдачи снимка прав пользователя.
//
// Снимок объединяет роль, квоты тарифного плана, развёрнутую матрицу
// разрешений страницы × действия и состояние пробного периода, чтобы
// фронтенд получил все данные одним запросом.
package resolve

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

// EntitlementService определяет методы резолвера прав.
type EntitlementService interface {
	ResolveForUser(ctx context.Context, userUID, email string) (models.EntitlementSnapshot, error)
	ListCatalog(ctx context.Context) ([]models.Permission, error)
}

// TrialService определяет метод чтения состояния пробного периода.
type TrialService interface {
	GetTrialStatus(ctx context.Context, userUID string) models.TrialState
}

// Handler обрабатывает HTTP-запросы на получение снимка прав.
type Handler struct {
	log          *slog.Logger
	entitlements EntitlementService
	trials       TrialService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, entitlements EntitlementService, trials TrialService) *Handler {
	return &Handler{
		log:          log,
		entitlements: entitlements,
		trials:       trials,
	}
}

// ServeHTTP godoc
// @Summary Снимок прав текущего пользователя
// @Description Возвращает роль, квоты, матрицу разрешений и состояние пробного периода
// @Tags Entitlements
// @Produce  json
// @Success 200 {object} map[string]any "Снимок прав"
// @Failure 401 {object} response.ErrorResponse "Нет данных пользователя в контексте"
// @Failure 500 {object} response.ErrorResponse "Ошибка резолвера"
// @Security BearerAuth
// @Router /entitlements [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.resolve"

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

	snapshot, err := h.entitlements.ResolveForUser(r.Context(), userUID, email)
	if err != nil {
		log.Error("failed to resolve entitlements", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to resolve entitlements"))
		return
	}

	catalog, err := h.entitlements.ListCatalog(r.Context())
	if err != nil {
		log.Error("failed to load permission catalog", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load permission catalog"))
		return
	}

	permissions := make(map[string]map[string]bool)
	for _, p := range catalog {
		page := string(p.Page)
		if permissions[page] == nil {
			permissions[page] = make(map[string]bool)
		}
		permissions[page][string(p.Action)] = snapshot.HasPermission(p.Page, p.Action)
	}

	trialState := h.trials.GetTrialStatus(r.Context(), userUID)

	log.Info("resolved entitlements",
		slog.String("user_uid", userUID), slog.String("role", string(snapshot.Role)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"role":          snapshot.Role,
		"is_admin":      snapshot.IsAdmin,
		"is_superadmin": snapshot.IsSuperAdmin,
		"max_users":     snapshot.MaxUsers,
		"current_users": snapshot.CurrentUsers,
		"can_add_users": snapshot.CanAddUsers,
		"permissions":   permissions,
		"trial":         trialState,
	}))
}
