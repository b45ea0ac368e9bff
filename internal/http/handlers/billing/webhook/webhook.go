// Package webhook реализует HTTP-обработчик вебхуков платёжных шлюзов.
//
// Тело запроса читается как сырые байты: проверка подписи выполняется
// над тем же представлением, которое подписал шлюз. Любой исход сверки
// (granted, already_processed, rejected) возвращается со статусом 200,
// чтобы шлюз не ретраил доставку; ошибки подписи и хранилища — нет.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/http/response"
	"github.com/magabrotheeeer/stock-signals/internal/lib/sl"
	"github.com/magabrotheeeer/stock-signals/internal/services/billing"
)

// Service описывает интерфейс сервиса биллинга для обработки вебхука.
type Service interface {
	HandleWebhook(ctx context.Context, gatewayName string, payload []byte, header http.Header) (billing.Outcome, error)
}

// Handler обрабатывает входящие вебхуки платёжных шлюзов.
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
// @Summary Вебхук платёжного шлюза
// @Description Принимает событие оплаты от шлюза, проверяет подпись и выполняет сверку.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param gateway path string true "Имя шлюза (stripe или razorpay)"
// @Success 200 {object} map[string]any "Исход сверки"
// @Failure 400 {object} response.ErrorResponse "Невалидная подпись или тело"
// @Failure 404 {object} response.ErrorResponse "Неизвестный шлюз"
// @Failure 500 {object} response.ErrorResponse "Ошибка сверки"
// @Router /billing/webhook/{gateway} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"

	gatewayName := chi.URLParam(r, "gateway")

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("gateway", gatewayName),
	)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}

	outcome, err := h.service.HandleWebhook(r.Context(), gatewayName, payload, r.Header)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnknownGateway):
			log.Error("unknown gateway")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown payment gateway"))
		case errors.Is(err, gateway.ErrSignatureInvalid):
			log.Error("signature verification failed", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid webhook signature"))
		default:
			log.Error("reconciliation failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to process webhook"))
		}
		return
	}

	log.Info("webhook processed", slog.String("outcome", string(outcome.Kind)))
	render.JSON(w, r, response.OKWithData(outcome))
}
