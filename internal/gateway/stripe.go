package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/stock-signals/internal/config"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// stripeSignatureTolerance — допустимый возраст подписанного вебхука.
const stripeSignatureTolerance = 5 * time.Minute

// StripeAdapter реализует Adapter поверх Stripe Checkout.
type StripeAdapter struct {
	secretKey     string
	webhookSecret string
	priceID       string
	successURL    string
	cancelURL     string
	apiURL        string
	httpClient    *http.Client
	now           func() time.Time
}

// NewStripeAdapter создаёт адаптер Stripe.
func NewStripeAdapter(cfg config.StripeConfig, frontendURL string) *StripeAdapter {
	return &StripeAdapter{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		successURL:    frontendURL + "/dashboard?payment=success&gateway=stripe",
		cancelURL:     frontendURL + "/dashboard?payment=cancelled",
		apiURL:        "https://api.stripe.com/v1",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

// Name возвращает идентификатор шлюза.
func (a *StripeAdapter) Name() models.Gateway { return models.GatewayStripe }

// Configured сообщает, задан ли секретный ключ.
func (a *StripeAdapter) Configured() bool { return a.secretKey != "" }

// SignatureHeader возвращает имя заголовка подписи вебхука Stripe.
func (a *StripeAdapter) SignatureHeader() string { return "Stripe-Signature" }

// CreateCheckout создает Stripe Checkout Session и возвращает hosted-ссылку.
func (a *StripeAdapter) CreateCheckout(ctx context.Context, user *models.User) (*Checkout, error) {
	const op = "gateway.stripe.CreateCheckout"
	if !a.Configured() {
		return nil, fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", a.priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", a.successURL)
	form.Set("cancel_url", a.cancelURL)
	form.Set("customer_email", user.Email)
	form.Set("metadata[user_uid]", user.UID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.apiURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRequestFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: unexpected status %s", op, ErrGatewayRequestFailed, resp.Status)
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRequestFailed, err)
	}

	return &Checkout{
		Gateway:     string(models.GatewayStripe),
		CheckoutURL: session.URL,
	}, nil
}

// stripeEvent — релевантная часть вебхука Stripe.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			AmountTotal   int64             `json:"amount_total"`
			Currency      string            `json:"currency"`
			PaymentStatus string            `json:"payment_status"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyInboundEvent проверяет заголовок Stripe-Signature
// (схема t=...,v1=..., HMAC-SHA256 от "t.payload") и нормализует событие.
// Подпись проверяется до какого-либо разбора содержимого.
func (a *StripeAdapter) VerifyInboundEvent(payload []byte, signature string) (*models.PaymentEvent, error) {
	const op = "gateway.stripe.VerifyInboundEvent"
	if a.webhookSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
	}

	timestamp, candidates, err := parseStripeSignatureHeader(signature)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}

	signedPayload := strconv.FormatInt(timestamp, 10) + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}

	age := a.now().Sub(time.Unix(timestamp, 0))
	if age > stripeSignatureTolerance || age < -stripeSignatureTolerance {
		return nil, fmt.Errorf("%s: %w: timestamp outside tolerance", op, ErrSignatureInvalid)
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%s: invalid payload: %w", op, err)
	}

	return &models.PaymentEvent{
		EventID:  event.ID,
		Gateway:  models.GatewayStripe,
		UserRef:  event.Data.Object.Metadata["user_uid"],
		Amount:   event.Data.Object.AmountTotal,
		Currency: event.Data.Object.Currency,
		Status:   normalizeStripeStatus(event.Type, event.Data.Object.PaymentStatus),
	}, nil
}

// parseStripeSignatureHeader разбирает заголовок вида "t=123,v1=abc,v1=def".
func parseStripeSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64 = -1
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			ts, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, pair[1])
		}
	}
	if timestamp < 0 || len(candidates) == 0 {
		return 0, nil, fmt.Errorf("missing timestamp or signature")
	}
	return timestamp, candidates, nil
}

// normalizeStripeStatus приводит статусы Stripe к общей форме.
// Неизвестные статусы считаются failed.
func normalizeStripeStatus(eventType, paymentStatus string) models.EventStatus {
	if eventType != "checkout.session.completed" {
		return models.StatusFailed
	}
	switch paymentStatus {
	case "paid", "no_payment_required":
		return models.StatusVerified
	case "unpaid":
		return models.StatusPending
	default:
		return models.StatusFailed
	}
}
