package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/stock-signals/internal/config"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

const (
	razorpayTestKeySecret     = "key_secret_test"
	razorpayTestWebhookSecret = "webhook_secret_test"
)

func newTestRazorpayAdapter() *RazorpayAdapter {
	return NewRazorpayAdapter(config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     razorpayTestKeySecret,
		WebhookSecret: razorpayTestWebhookSecret,
		PlanAmount:    49900,
		Currency:      "INR",
	})
}

func signHexHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func razorpayCapturedPayload(status string) []byte {
	return fmt.Appendf(nil, `{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_123",
			"amount": 49900,
			"currency": "INR",
			"status": %q,
			"notes": {"user_uid": "user-uid-1"}
		}}}
	}`, status)
}

func TestRazorpayVerifyInboundEvent_Success(t *testing.T) {
	adapter := newTestRazorpayAdapter()

	payload := razorpayCapturedPayload("captured")
	signature := signHexHMAC(razorpayTestWebhookSecret, payload)

	event, err := adapter.VerifyInboundEvent(payload, signature)
	require.NoError(t, err)
	assert.Equal(t, "pay_123", event.EventID)
	assert.Equal(t, models.GatewayRazorpay, event.Gateway)
	assert.Equal(t, "user-uid-1", event.UserRef)
	assert.Equal(t, int64(49900), event.Amount)
	assert.Equal(t, models.StatusVerified, event.Status)
}

func TestRazorpayVerifyInboundEvent_TamperedPayload(t *testing.T) {
	adapter := newTestRazorpayAdapter()

	payload := razorpayCapturedPayload("captured")
	signature := signHexHMAC(razorpayTestWebhookSecret, payload)

	tampered := razorpayCapturedPayload("failed")
	event, err := adapter.VerifyInboundEvent(tampered, signature)
	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestRazorpayVerifyInboundEvent_WrongSecret(t *testing.T) {
	adapter := newTestRazorpayAdapter()

	payload := razorpayCapturedPayload("captured")
	signature := signHexHMAC("other_secret", payload)

	event, err := adapter.VerifyInboundEvent(payload, signature)
	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestRazorpayVerifyInboundEvent_NoWebhookSecret(t *testing.T) {
	adapter := NewRazorpayAdapter(config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: razorpayTestKeySecret,
	})

	event, err := adapter.VerifyInboundEvent([]byte("{}"), "aa")
	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestRazorpayVerifyClientPayment(t *testing.T) {
	adapter := newTestRazorpayAdapter()

	orderID := "order_abc"
	paymentID := "pay_xyz"
	valid := signHexHMAC(razorpayTestKeySecret, []byte(orderID+"|"+paymentID))

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		wantErr   error
	}{
		{name: "valid signature", orderID: orderID, paymentID: paymentID, signature: valid, wantErr: nil},
		{name: "wrong signature", orderID: orderID, paymentID: paymentID, signature: "deadbeef", wantErr: ErrSignatureInvalid},
		{name: "signature for other order", orderID: "order_other", paymentID: paymentID, signature: valid, wantErr: ErrSignatureInvalid},
		{name: "signature for other payment", orderID: orderID, paymentID: "pay_other", signature: valid, wantErr: ErrSignatureInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adapter.VerifyClientPayment(tt.orderID, tt.paymentID, tt.signature)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRazorpayVerifyClientPayment_NotConfigured(t *testing.T) {
	adapter := NewRazorpayAdapter(config.RazorpayConfig{})

	err := adapter.VerifyClientPayment("order", "payment", "sig")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestNormalizeRazorpayStatus(t *testing.T) {
	tests := []struct {
		name          string
		eventType     string
		paymentStatus string
		want          models.EventStatus
	}{
		{name: "captured", eventType: "payment.captured", paymentStatus: "captured", want: models.StatusVerified},
		{name: "authorized is pending", eventType: "payment.captured", paymentStatus: "authorized", want: models.StatusPending},
		{name: "created is pending", eventType: "payment.captured", paymentStatus: "created", want: models.StatusPending},
		{name: "unknown status is failed", eventType: "payment.captured", paymentStatus: "refunded", want: models.StatusFailed},
		{name: "other event type is failed", eventType: "payment.failed", paymentStatus: "captured", want: models.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeRazorpayStatus(tt.eventType, tt.paymentStatus))
		})
	}
}
