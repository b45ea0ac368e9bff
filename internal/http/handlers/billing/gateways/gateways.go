// Package gateways реализует HTTP-обработчик списка платёжных шлюзов.
package gateways

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/stock-signals/internal/http/response"
	"github.com/magabrotheeeer/stock-signals/internal/services/billing"
)

// Service описывает интерфейс сервиса биллинга для списка шлюзов.
type Service interface {
	Gateways() *billing.GatewayInfo
}

// Handler обрабатывает запросы списка шлюзов.
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
// @Summary Доступные платёжные шлюзы
// @Description Возвращает активный шлюз и список сконфигурированных шлюзов.
// @Tags Billing
// @Produce  json
// @Success 200 {object} map[string]any "Сведения о шлюзах"
// @Router /billing/gateways [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.gateways"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	info := h.service.Gateways()
	log.Info("gateways listed", slog.String("active", info.ActiveGateway))
	render.JSON(w, r, response.OKWithData(info))
}
