// Package checkout реализует HTTP-обработчик создания платёжной сессии.
//
// Обработчик принимает необязательное переопределение шлюза в теле запроса,
// делегирует создание сессии сервису биллинга и возвращает ссылку на оплату.
// Недоступность внешнего шлюза транслируется в HTTP 503, отказ шлюза — в 502.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stock-signals/internal/http/response"
	"github.com/magabrotheeeer/stock-signals/internal/lib/sl"
	"github.com/magabrotheeeer/stock-signals/internal/services/billing"
)

// Request — тело запроса создания сессии. Gateway опционален:
// пустое значение означает активный шлюз из конфигурации.
type Request struct {
	Gateway string `json:"gateway,omitempty" validate:"omitempty,oneof=stripe razorpay"`
}

// Service описывает интерфейс сервиса биллинга для создания сессии.
type Service interface {
	CreateCheckout(ctx context.Context, userUID, override string) (*gateway.Checkout, error)
}

// Handler обрабатывает запросы на создание платёжной сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создание платёжной сессии
// @Description Создает сессию оплаты через активный либо явно указанный шлюз.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request false "Необязательное переопределение шлюза"
// @Success 200 {object} map[string]any "Данные платёжной сессии"
// @Failure 400 {object} response.ErrorResponse "Подписка уже активна или шлюз неизвестен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Шлюз отклонил запрос"
// @Failure 503 {object} response.ErrorResponse "Шлюз не сконфигурирован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /billing/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"

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

	// Тело опционально: запрос без тела означает активный шлюз.
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	checkout, err := h.service.CreateCheckout(r.Context(), userUID, req.Gateway)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrAlreadyPaid):
			log.Info("checkout rejected, already paid", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("subscription is already active"))
		case errors.Is(err, gateway.ErrUnknownGateway):
			log.Error("unknown gateway requested", slog.String("gateway", req.Gateway))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown payment gateway"))
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			log.Error("gateway is not configured", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment gateway is not configured"))
		case errors.Is(err, gateway.ErrGatewayRequestFailed):
			log.Error("gateway request failed", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway rejected the request"))
		default:
			log.Error("failed to create checkout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to create checkout session"))
		}
		return
	}

	log.Info("checkout created",
		slog.String("user_uid", userUID),
		slog.String("gateway", string(checkout.Gateway)))
	render.JSON(w, r, response.OKWithData(checkout))
}
