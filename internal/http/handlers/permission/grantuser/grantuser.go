// Package grantuser реализует HTTP-обработчик персонального переопределения гранта.
//
// Переопределение имеет приоритет над грантом роли и доступно только
// администраторам.
package grantuser

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
	"github.com/tresoflow/entitlement-service/internal/services/entitlement"
)

// EntitlementService определяет методы персонального переопределения гранта
// и определения эффективной роли вызывающего.
type EntitlementService interface {
	UpsertUserOverride(ctx context.Context, req models.DummyUserGrant) error
	EffectiveRole(ctx context.Context, userUID, email string) models.Role
}

// Handler обрабатывает HTTP-запросы персональных переопределений.
type Handler struct {
	log          *slog.Logger
	entitlements EntitlementService
	validate     *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, entitlements EntitlementService) *Handler {
	return &Handler{
		log:          log,
		entitlements: entitlements,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Переопределить грант пользователя
// @Description Создает или перезаписывает персональное разрешение пользователя
// @Tags Permissions
// @Accept  json
// @Produce  json
// @Param request body models.DummyUserGrant true "Переопределение гранта"
// @Success 200 {object} map[string]any "Переопределение сохранено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Неизвестное разрешение"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сохранения"
// @Security BearerAuth
// @Router /permissions/user [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.permission.grantuser"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// Эффективная роль берётся из резолвера, а не из JWT-клейма:
	// назначенный superadmin проходит гейт при любой сохранённой роли.
	callerUID, _ := r.Context().Value(middlewarectx.UserUID).(string)
	callerEmail, _ := r.Context().Value(middlewarectx.Email).(string)
	callerRole := h.entitlements.EffectiveRole(r.Context(), callerUID, callerEmail)
	if callerRole != models.RoleAdmin && callerRole != models.RoleSuperadmin {
		log.Error("caller is not allowed to manage user grants", slog.String("role", string(callerRole)))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("insufficient permissions"))
		return
	}

	var req models.DummyUserGrant
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

	if err := h.entitlements.UpsertUserOverride(r.Context(), req); err != nil {
		if errors.Is(err, entitlement.ErrUnknownPermission) {
			log.Error("unknown permission", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown permission"))
			return
		}
		log.Error("failed to upsert user override", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to save user override"))
		return
	}

	log.Info("saved user override",
		slog.String("user_uid", req.UserUID), slog.String("page", req.Page),
		slog.String("action", req.Action), slog.Bool("granted", req.Granted))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "user override saved",
	}))
}
