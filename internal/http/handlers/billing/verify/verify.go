// Package verify реализует HTTP-обработчик клиентского подтверждения оплаты Razorpay.
//
// Razorpay после оплаты возвращает браузеру тройку order_id/payment_id/signature;
// обработчик проверяет подпись и выполняет ту же сверку, что и вебхук,
// поэтому повтор с любого из двух путей безопасен.
package verify

import (
	"context"
	"encoding/json"
	"errors"
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

// Request — тройка подтверждения оплаты от клиента Razorpay.
type Request struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Service описывает интерфейс сервиса биллинга для клиентского подтверждения.
type Service interface {
	VerifyClientPayment(ctx context.Context, userUID, orderID, paymentID, signature string) (billing.Outcome, error)
}

// Handler обрабатывает клиентские подтверждения оплаты.
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
// @Summary Клиентское подтверждение оплаты Razorpay
// @Description Проверяет подпись тройки order/payment/signature и выполняет сверку.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные подтверждения оплаты"
// @Success 200 {object} map[string]any "Исход сверки"
// @Failure 400 {object} response.ErrorResponse "Невалидная подпись или тело"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сверки"
// @Security BearerAuth
// @Router /billing/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.verify"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	outcome, err := h.service.VerifyClientPayment(r.Context(), userUID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrSignatureInvalid):
			log.Error("client payment signature invalid", slog.String("order_id", req.OrderID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid payment signature"))
		case errors.Is(err, gateway.ErrUnknownGateway), errors.Is(err, gateway.ErrGatewayUnavailable):
			log.Error("razorpay gateway unavailable", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment gateway is not configured"))
		default:
			log.Error("client payment verification failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to verify payment"))
		}
		return
	}

	log.Info("client payment verified",
		slog.String("user_uid", userUID),
		slog.String("outcome", string(outcome.Kind)))
	render.JSON(w, r, response.OKWithData(outcome))
}
