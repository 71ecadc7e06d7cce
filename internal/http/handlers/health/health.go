// Package health реализует HTTP-обработчик проверки работоспособности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tresoflow/entitlement-service/internal/cache"
	"github.com/tresoflow/entitlement-service/internal/http/response"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/storage/repository"
)

// Handler обрабатывает HTTP-запросы проверки здоровья.
type Handler struct {
	log     *slog.Logger
	storage *repository.Storage
	cache   *cache.Cache
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, storage *repository.Storage, cache *cache.Cache) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
		cache:   cache,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := repository.CheckDatabaseReady(h.storage); err != nil {
		h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}

	if err := h.cache.Db.Ping(r.Context()).Err(); err != nil {
		h.log.Error("cache is not ready", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("cache is not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
