package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stock-signals/internal/services/billing"
)

type BillingServiceMock struct {
	mock.Mock
}

func (m *BillingServiceMock) CreateCheckout(ctx context.Context, userUID, override string) (*gateway.Checkout, error) {
	args := m.Called(ctx, userUID, override)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Checkout), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCheckoutHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		withUser       bool
		setupMock      func(*BillingServiceMock)
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:        "success with explicit gateway",
			requestBody: Request{Gateway: "razorpay"},
			withUser:    true,
			setupMock: func(m *BillingServiceMock) {
				m.On("CreateCheckout", mock.Anything, "user-uid-1", "razorpay").
					Return(&gateway.Checkout{
						Gateway:     "razorpay",
						OrderID:     "order_abc",
						Amount:      49900,
						Currency:    "INR",
						KeyID:       "rzp_test_key",
						CheckoutURL: "",
					}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:        "empty body uses active gateway",
			requestBody: "",
			withUser:    true,
			setupMock: func(m *BillingServiceMock) {
				m.On("CreateCheckout", mock.Anything, "user-uid-1", "").
					Return(&gateway.Checkout{
						Gateway:     "stripe",
						CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
					}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "unsupported gateway name fails validation",
			requestBody:    Request{Gateway: "paypal"},
			withUser:       true,
			setupMock:      func(_ *BillingServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name:        "already paid",
			requestBody: Request{},
			withUser:    true,
			setupMock: func(m *BillingServiceMock) {
				m.On("CreateCheckout", mock.Anything, "user-uid-1", "").
					Return(nil, billing.ErrAlreadyPaid).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "subscription is already active",
		},
		{
			name:        "gateway not configured",
			requestBody: Request{Gateway: "razorpay"},
			withUser:    true,
			setupMock: func(m *BillingServiceMock) {
				m.On("CreateCheckout", mock.Anything, "user-uid-1", "razorpay").
					Return(nil, gateway.ErrGatewayUnavailable).Once()
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantStatus:     "Error",
			wantError:      "payment gateway is not configured",
		},
		{
			name:        "gateway rejected the request",
			requestBody: Request{},
			withUser:    true,
			setupMock: func(m *BillingServiceMock) {
				m.On("CreateCheckout", mock.Anything, "user-uid-1", "").
					Return(nil, gateway.ErrGatewayRequestFailed).Once()
			},
			wantStatusCode: http.StatusBadGateway,
			wantStatus:     "Error",
			wantError:      "payment gateway rejected the request",
		},
		{
			name:           "missing user context",
			requestBody:    Request{},
			withUser:       false,
			setupMock:      func(_ *BillingServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
			wantError:      "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(BillingServiceMock)
			tt.setupMock(serviceMock)
			handler := New(newNoopLogger(), serviceMock)

			var body []byte
			switch v := tt.requestBody.(type) {
			case string:
				body = []byte(v)
			default:
				var err error
				body, err = json.Marshal(v)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewReader(body))
			if tt.withUser {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "user-uid-1"))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err := json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
