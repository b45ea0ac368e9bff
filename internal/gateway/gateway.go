// Package gateway содержит адаптеры платёжных шлюзов (Stripe, Razorpay),
// приводящие их API и вебхуки к единому контракту. Биллинговая логика
// зависит только от интерфейса Adapter и не ветвится по типу шлюза.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/stock-signals/internal/models"
)

var (
	// ErrGatewayUnavailable — ключи шлюза не сконфигурированы.
	ErrGatewayUnavailable = errors.New("gateway is not configured")
	// ErrGatewayRequestFailed — ошибка сети или отказ провайдера, можно повторить.
	ErrGatewayRequestFailed = errors.New("gateway request failed")
	// ErrSignatureInvalid — подпись входящего события не прошла проверку.
	ErrSignatureInvalid = errors.New("invalid signature")
	// ErrUnknownGateway — запрошен незарегистрированный шлюз.
	ErrUnknownGateway = errors.New("unknown gateway")
)

// Checkout — результат создания платёжной сессии. Stripe возвращает
// hosted-ссылку (CheckoutURL), Razorpay — данные заказа для клиентского SDK.
type Checkout struct {
	Gateway     string `json:"gateway"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	KeyID       string `json:"key_id,omitempty"`
}

// Adapter — единый контракт платёжного шлюза.
type Adapter interface {
	// Name возвращает идентификатор шлюза.
	Name() models.Gateway
	// Configured сообщает, заданы ли ключи шлюза.
	Configured() bool
	// SignatureHeader возвращает имя HTTP-заголовка с подписью вебхука.
	SignatureHeader() string
	// CreateCheckout создает платёжную сессию для пользователя.
	CreateCheckout(ctx context.Context, user *models.User) (*Checkout, error)
	// VerifyInboundEvent проверяет подпись сырого вебхука и нормализует
	// его в PaymentEvent. Подпись проверяется до разбора содержимого.
	VerifyInboundEvent(payload []byte, signature string) (*models.PaymentEvent, error)
}

// Registry хранит адаптеры и выбирает активный. Активный шлюз задается
// конфигурацией при старте, без глобального состояния.
type Registry struct {
	active   models.Gateway
	adapters map[models.Gateway]Adapter
}

// NewRegistry собирает реестр адаптеров с активным шлюзом по умолчанию.
func NewRegistry(active models.Gateway, adapters ...Adapter) (*Registry, error) {
	m := make(map[models.Gateway]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	if _, ok := m[active]; !ok {
		return nil, fmt.Errorf("active gateway %q is not registered", active)
	}
	return &Registry{active: active, adapters: m}, nil
}

// Active возвращает активный адаптер.
func (r *Registry) Active() Adapter {
	return r.adapters[r.active]
}

// Get возвращает адаптер по имени или ErrUnknownGateway.
func (r *Registry) Get(name models.Gateway) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return a, nil
}

// Resolve возвращает адаптер по имени либо активный, если имя пустое.
func (r *Registry) Resolve(name string) (Adapter, error) {
	if name == "" {
		return r.Active(), nil
	}
	return r.Get(models.Gateway(name))
}

// ActiveName возвращает имя активного шлюза.
func (r *Registry) ActiveName() models.Gateway {
	return r.active
}

// ConfiguredNames возвращает имена шлюзов с заданными ключами.
func (r *Registry) ConfiguredNames() []string {
	var names []string
	for _, a := range r.adapters {
		if a.Configured() {
			names = append(names, string(a.Name()))
		}
	}
	return names
}
