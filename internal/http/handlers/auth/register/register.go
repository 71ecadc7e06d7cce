// Package register реализует HTTP-обработчик для регистрации новых пользователей.
//
// Регистрация создаёт аккаунт с пробным периодом и первого пользователя,
// после чего проверяет ветку bootstrap: первый пользователь пустой базы
// без superadmin получает роль superadmin.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
)

// Request — входные данные для регистрации.
type Request struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Password    string `json:"password" validate:"required,min=6"`
	AccountName string `json:"account_name" validate:"required,min=2,max=100"`
	PlanID      int    `json:"plan_id" validate:"omitempty,gt=0"`
}

// AuthService определяет методы бизнес-логики регистрации пользователей.
type AuthService interface {
	Register(ctx context.Context, email, username, password, accountName string, planID int) (string, error)
}

// EntitlementService определяет методы резолвера, нужные при регистрации.
type EntitlementService interface {
	BootstrapFirstSuperadmin(ctx context.Context, userUID string) (bool, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log           *slog.Logger
	authService   AuthService
	entitlements  EntitlementService
	defaultPlanID int
	validate      *validator.Validate
}

// New создает новый экземпляр Handler.
//
// defaultPlanID используется, когда запрос не указывает тарифный план.
func New(log *slog.Logger, authService AuthService, entitlements EntitlementService, defaultPlanID int) *Handler {
	return &Handler{
		log:           log,
		authService:   authService,
		entitlements:  entitlements,
		defaultPlanID: defaultPlanID,
		validate:      validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация нового пользователя
// @Description Создает аккаунт с пробным периодом и первого пользователя
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 200 {object} map[string]any "Успешная регистрация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
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

	planID := req.PlanID
	if planID == 0 {
		planID = h.defaultPlanID
	}

	userUID, err := h.authService.Register(r.Context(), req.Email, req.Username, req.Password, req.AccountName, planID)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to register user"))
		return
	}

	promoted, err := h.entitlements.BootstrapFirstSuperadmin(r.Context(), userUID)
	if err != nil {
		log.Warn("failed to check superadmin bootstrap", sl.Err(err))
	}

	log.Info("register success",
		slog.String("username", req.Username), slog.String("email", req.Email),
		slog.Bool("promoted_to_superadmin", promoted))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message":  "user created successfully",
		"username": req.Username,
		"email":    req.Email,
		"user_uid": userUID,
	}))
}
