package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/magabrotheeeer/stock-signals/internal/config"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// RazorpayAdapter реализует Adapter поверх Razorpay Orders.
type RazorpayAdapter struct {
	keyID         string
	keySecret     string
	webhookSecret string
	planAmount    int64
	currency      string
	apiURL        string
	httpClient    *http.Client
}

// NewRazorpayAdapter создаёт адаптер Razorpay.
func NewRazorpayAdapter(cfg config.RazorpayConfig) *RazorpayAdapter {
	return &RazorpayAdapter{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		planAmount:    cfg.PlanAmount,
		currency:      cfg.Currency,
		apiURL:        "https://api.razorpay.com/v1",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Name возвращает идентификатор шлюза.
func (a *RazorpayAdapter) Name() models.Gateway { return models.GatewayRazorpay }

// Configured сообщает, заданы ли ключи.
func (a *RazorpayAdapter) Configured() bool { return a.keyID != "" && a.keySecret != "" }

// SignatureHeader возвращает имя заголовка подписи вебхука Razorpay.
func (a *RazorpayAdapter) SignatureHeader() string { return "X-Razorpay-Signature" }

// CreateCheckout создает заказ Razorpay и возвращает данные для клиентского SDK.
func (a *RazorpayAdapter) CreateCheckout(ctx context.Context, user *models.User) (*Checkout, error) {
	const op = "gateway.razorpay.CreateCheckout"
	if !a.Configured() {
		return nil, fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
	}

	orderReq := map[string]any{
		"amount":   a.planAmount,
		"currency": a.currency,
		"receipt":  "order_user_" + user.UID,
		"notes": map[string]string{
			"user_uid": user.UID,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(orderReq); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/orders", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.SetBasicAuth(a.keyID, a.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRequestFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: %w: unexpected status %s", op, ErrGatewayRequestFailed, resp.Status)
	}

	var order struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRequestFailed, err)
	}

	return &Checkout{
		Gateway:  string(models.GatewayRazorpay),
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    a.keyID,
	}, nil
}

// razorpayEvent — релевантная часть вебхука Razorpay.
type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string            `json:"id"`
				Amount   int64             `json:"amount"`
				Currency string            `json:"currency"`
				Status   string            `json:"status"`
				Notes    map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyInboundEvent проверяет заголовок X-Razorpay-Signature
// (hex HMAC-SHA256 от сырого тела) и нормализует событие.
// Подпись проверяется до какого-либо разбора содержимого.
func (a *RazorpayAdapter) VerifyInboundEvent(payload []byte, signature string) (*models.PaymentEvent, error) {
	const op = "gateway.razorpay.VerifyInboundEvent"
	if a.webhookSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}

	var event razorpayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%s: invalid payload: %w", op, err)
	}

	entity := event.Payload.Payment.Entity
	return &models.PaymentEvent{
		EventID:  entity.ID,
		Gateway:  models.GatewayRazorpay,
		UserRef:  entity.Notes["user_uid"],
		Amount:   entity.Amount,
		Currency: entity.Currency,
		Status:   normalizeRazorpayStatus(event.Event, entity.Status),
	}, nil
}

// VerifyClientPayment проверяет подпись клиентского подтверждения оплаты:
// hex HMAC-SHA256 от "order_id|payment_id" на секретном ключе.
func (a *RazorpayAdapter) VerifyClientPayment(orderID, paymentID, signature string) error {
	const op = "gateway.razorpay.VerifyClientPayment"
	if !a.Configured() {
		return fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
	}

	mac := hmac.New(sha256.New, []byte(a.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}
	return nil
}

// normalizeRazorpayStatus приводит статусы Razorpay к общей форме.
// Неизвестные статусы считаются failed.
func normalizeRazorpayStatus(eventType, paymentStatus string) models.EventStatus {
	if eventType != "payment.captured" {
		return models.StatusFailed
	}
	switch paymentStatus {
	case "captured":
		return models.StatusVerified
	case "authorized", "created":
		return models.StatusPending
	default:
		return models.StatusFailed
	}
}
