// Package list реализует HTTP-обработчик выдачи торговых сигналов.
//
// Набор сигналов один и тот же для всех; бесплатные пользователи получают
// усечённый список с флагом is_limited, оплаченные — полный.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/stock-signals/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stock-signals/internal/http/response"
	"github.com/magabrotheeeer/stock-signals/internal/lib/sl"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// Service описывает интерфейс сервиса сигналов.
type Service interface {
	ListForUser(ctx context.Context, userUID string) (*models.SignalsResponse, error)
}

// Handler обрабатывает запросы списка сигналов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Торговые сигналы
// @Description Возвращает сигналы с учетом подписки: без оплаты — первые три, с оплатой — все.
// @Tags Signals
// @Produce  json
// @Success 200 {object} map[string]any "Список сигналов"
// @Failure 401 {object} response.ErrorResponse "Неавторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /signals [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.signals.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("missing user uid in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.ListForUser(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list signals", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list signals"))
		return
	}

	log.Info("signals listed",
		slog.String("user_uid", userUID),
		slog.Bool("is_limited", result.IsLimited),
		slog.Int("count", len(result.Signals)))
	render.JSON(w, r, response.OKWithData(result))
}
