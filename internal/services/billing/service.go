package billing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// ClientVerifier — шлюз с клиентским подтверждением оплаты (Razorpay).
type ClientVerifier interface {
	VerifyClientPayment(orderID, paymentID, signature string) error
}

// StatusInfo — состояние подписки пользователя для HTTP-ответа.
type StatusInfo struct {
	IsPaid         bool   `json:"is_paid"`
	Email          string `json:"email"`
	PaymentGateway string `json:"payment_gateway"`
}

// GatewayInfo — сведения о доступных шлюзах.
type GatewayInfo struct {
	ActiveGateway     string   `json:"active_gateway"`
	AvailableGateways []string `json:"available_gateways"`
}

// Service — сервисный слой биллинга поверх реестра шлюзов и Reconciler.
// Выбор шлюза происходит здесь, ядро сверки о шлюзах не знает.
type Service struct {
	registry   *gateway.Registry
	users      UserRepository
	reconciler *Reconciler
	log        *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(registry *gateway.Registry, users UserRepository, reconciler *Reconciler, log *slog.Logger) *Service {
	return &Service{
		registry:   registry,
		users:      users,
		reconciler: reconciler,
		log:        log,
	}
}

// ErrAlreadyPaid возвращается при попытке оплатить уже оплаченный доступ.
var ErrAlreadyPaid = fmt.Errorf("user already has an active subscription")

// CreateCheckout создает платёжную сессию для пользователя через активный
// шлюз либо через явно указанный в override.
func (s *Service) CreateCheckout(ctx context.Context, userUID, override string) (*gateway.Checkout, error) {
	const op = "billing.CreateCheckout"
	user, err := s.users.GetUserByUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsPaid {
		return nil, ErrAlreadyPaid
	}

	adapter, err := s.registry.Resolve(override)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return adapter.CreateCheckout(ctx, user)
}

// HandleWebhook проверяет подпись сырого вебхука указанного шлюза
// и передает нормализованное событие в Reconciler.
func (s *Service) HandleWebhook(ctx context.Context, gatewayName string, payload []byte, header http.Header) (Outcome, error) {
	const op = "billing.HandleWebhook"
	adapter, err := s.registry.Get(models.Gateway(gatewayName))
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	event, err := adapter.VerifyInboundEvent(payload, header.Get(adapter.SignatureHeader()))
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.reconciler.Reconcile(ctx, event)
}

// VerifyClientPayment обрабатывает клиентское подтверждение оплаты Razorpay:
// проверка подписи, затем та же сверка, что и для вебхука.
func (s *Service) VerifyClientPayment(ctx context.Context, userUID, orderID, paymentID, signature string) (Outcome, error) {
	const op = "billing.VerifyClientPayment"
	adapter, err := s.registry.Get(models.GatewayRazorpay)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	verifier, ok := adapter.(ClientVerifier)
	if !ok {
		return Outcome{}, fmt.Errorf("%s: gateway does not support client verification", op)
	}
	if err := verifier.VerifyClientPayment(orderID, paymentID, signature); err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	event := &models.PaymentEvent{
		EventID: paymentID,
		Gateway: models.GatewayRazorpay,
		UserRef: userUID,
		Status:  models.StatusVerified,
	}
	return s.reconciler.Reconcile(ctx, event)
}

// Status возвращает состояние подписки пользователя.
func (s *Service) Status(ctx context.Context, userUID string) (*StatusInfo, error) {
	const op = "billing.Status"
	user, err := s.users.GetUserByUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &StatusInfo{
		IsPaid:         user.IsPaid,
		Email:          user.Email,
		PaymentGateway: string(s.registry.ActiveName()),
	}, nil
}

// Gateways возвращает активный и сконфигурированные шлюзы.
func (s *Service) Gateways() *GatewayInfo {
	available := s.registry.ConfiguredNames()
	if len(available) == 0 {
		available = []string{string(s.registry.ActiveName())}
	}
	return &GatewayInfo{
		ActiveGateway:     string(s.registry.ActiveName()),
		AvailableGateways: available,
	}
}
