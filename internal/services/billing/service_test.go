package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/stock-signals/internal/config"
	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

const (
	testRazorpayKeySecret     = "rzp_key_secret"
	testRazorpayWebhookSecret = "rzp_webhook_secret"
)

func newTestRegistry(t *testing.T) *gateway.Registry {
	t.Helper()
	stripe := gateway.NewStripeAdapter(config.StripeConfig{
		SecretKey:     "sk_test",
		WebhookSecret: "whsec_test",
		PriceID:       "price_test",
	}, "http://localhost:5173")
	razorpay := gateway.NewRazorpayAdapter(config.RazorpayConfig{
		KeyID:         "rzp_test",
		KeySecret:     testRazorpayKeySecret,
		WebhookSecret: testRazorpayWebhookSecret,
		PlanAmount:    49900,
		Currency:      "INR",
	})
	registry, err := gateway.NewRegistry(models.GatewayStripe, stripe, razorpay)
	require.NoError(t, err)
	return registry
}

func newTestService(t *testing.T, users UserRepository, ledger Ledger, cache Cache) *Service {
	t.Helper()
	log := newNoopLogger()
	reconciler := NewReconciler(users, ledger, cache, nil, log)
	return NewService(newTestRegistry(t), users, reconciler, log)
}

func TestCreateCheckout_AlreadyPaid(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetUserByUID", mock.Anything, "user-uid-1").
		Return(&models.User{UID: "user-uid-1", IsPaid: true}, nil).Once()

	service := newTestService(t, users, new(MockLedger), new(MockCache))
	checkout, err := service.CreateCheckout(context.Background(), "user-uid-1", "")

	assert.Nil(t, checkout)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestCreateCheckout_UnknownGatewayOverride(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetUserByUID", mock.Anything, "user-uid-1").
		Return(&models.User{UID: "user-uid-1"}, nil).Once()

	service := newTestService(t, users, new(MockLedger), new(MockCache))
	checkout, err := service.CreateCheckout(context.Background(), "user-uid-1", "paypal")

	assert.Nil(t, checkout)
	assert.ErrorIs(t, err, gateway.ErrUnknownGateway)
}

func TestHandleWebhook_UnknownGateway(t *testing.T) {
	service := newTestService(t, new(MockUserRepository), new(MockLedger), new(MockCache))

	_, err := service.HandleWebhook(context.Background(), "paypal", []byte("{}"), http.Header{})
	assert.ErrorIs(t, err, gateway.ErrUnknownGateway)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	service := newTestService(t, new(MockUserRepository), new(MockLedger), new(MockCache))

	header := http.Header{}
	header.Set("X-Razorpay-Signature", "deadbeef")
	_, err := service.HandleWebhook(context.Background(), "razorpay", []byte(`{"event":"payment.captured"}`), header)
	assert.ErrorIs(t, err, gateway.ErrSignatureInvalid)
}

func TestHandleWebhook_RazorpayGrantsAccess(t *testing.T) {
	users := new(MockUserRepository)
	ledger := new(MockLedger)
	cache := new(MockCache)

	payload := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_123",
			"amount": 49900,
			"currency": "INR",
			"status": "captured",
			"notes": {"user_uid": "user-uid-1"}
		}}}
	}`)
	mac := hmac.New(sha256.New, []byte(testRazorpayWebhookSecret))
	mac.Write(payload)
	header := http.Header{}
	header.Set("X-Razorpay-Signature", hex.EncodeToString(mac.Sum(nil)))

	user := &models.User{UID: "user-uid-1", Email: "test@example.com"}
	cache.On("SetIfAbsent", "billing:event:pay_123", "processed", 24*time.Hour).Return(true, nil).Once()
	ledger.On("MarkEventProcessed", mock.Anything, "pay_123", "razorpay").Return(true, nil).Once()
	users.On("GetUserByUID", mock.Anything, "user-uid-1").Return(user, nil).Once()
	users.On("SetPaid", mock.Anything, "user-uid-1", true).Return(nil).Once()
	users.On("SavePayment", mock.Anything, mock.Anything, "user-uid-1").Return(1, nil).Once()

	service := newTestService(t, users, ledger, cache)
	outcome, err := service.HandleWebhook(context.Background(), "razorpay", payload, header)

	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, outcome.Kind)
	users.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestVerifyClientPayment_Success(t *testing.T) {
	users := new(MockUserRepository)
	ledger := new(MockLedger)
	cache := new(MockCache)

	orderID := "order_abc"
	paymentID := "pay_xyz"
	mac := hmac.New(sha256.New, []byte(testRazorpayKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	signature := hex.EncodeToString(mac.Sum(nil))

	user := &models.User{UID: "user-uid-1", Email: "test@example.com"}
	cache.On("SetIfAbsent", "billing:event:pay_xyz", "processed", 24*time.Hour).Return(true, nil).Once()
	ledger.On("MarkEventProcessed", mock.Anything, "pay_xyz", "razorpay").Return(true, nil).Once()
	users.On("GetUserByUID", mock.Anything, "user-uid-1").Return(user, nil).Once()
	users.On("SetPaid", mock.Anything, "user-uid-1", true).Return(nil).Once()
	users.On("SavePayment", mock.Anything, mock.Anything, "user-uid-1").Return(1, nil).Once()

	service := newTestService(t, users, ledger, cache)
	outcome, err := service.VerifyClientPayment(context.Background(), "user-uid-1", orderID, paymentID, signature)

	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, outcome.Kind)
}

func TestVerifyClientPayment_InvalidSignature(t *testing.T) {
	service := newTestService(t, new(MockUserRepository), new(MockLedger), new(MockCache))

	_, err := service.VerifyClientPayment(context.Background(), "user-uid-1", "order_abc", "pay_xyz", "deadbeef")
	assert.ErrorIs(t, err, gateway.ErrSignatureInvalid)
}

func TestVerifyClientPayment_ReplayIsAlreadyProcessed(t *testing.T) {
	users := new(MockUserRepository)
	ledger := new(MockLedger)
	cache := new(MockCache)

	orderID := "order_abc"
	paymentID := "pay_xyz"
	mac := hmac.New(sha256.New, []byte(testRazorpayKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	signature := hex.EncodeToString(mac.Sum(nil))

	// Вебхук уже обработал это же платёжное событие.
	cache.On("SetIfAbsent", "billing:event:pay_xyz", "processed", 24*time.Hour).Return(false, nil).Once()

	service := newTestService(t, users, ledger, cache)
	outcome, err := service.VerifyClientPayment(context.Background(), "user-uid-1", orderID, paymentID, signature)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, outcome.Kind)
	users.AssertNotCalled(t, "SetPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetUserByUID", mock.Anything, "user-uid-1").
		Return(&models.User{UID: "user-uid-1", Email: "test@example.com", IsPaid: true}, nil).Once()

	service := newTestService(t, users, new(MockLedger), new(MockCache))
	info, err := service.Status(context.Background(), "user-uid-1")

	require.NoError(t, err)
	assert.True(t, info.IsPaid)
	assert.Equal(t, "test@example.com", info.Email)
	assert.Equal(t, "stripe", info.PaymentGateway)
}

func TestGateways(t *testing.T) {
	service := newTestService(t, new(MockUserRepository), new(MockLedger), new(MockCache))

	info := service.Gateways()
	assert.Equal(t, "stripe", info.ActiveGateway)
	assert.ElementsMatch(t, []string{"stripe", "razorpay"}, info.AvailableGateways)
}
