package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/services/billing"
)

type BillingServiceMock struct {
	mock.Mock
}

func (m *BillingServiceMock) HandleWebhook(ctx context.Context, gatewayName string, payload []byte, header http.Header) (billing.Outcome, error) {
	args := m.Called(ctx, gatewayName, payload, header)
	return args.Get(0).(billing.Outcome), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestRouter(service *BillingServiceMock) http.Handler {
	r := chi.NewRouter()
	r.Post("/billing/webhook/{gateway}", New(newNoopLogger(), service).ServeHTTP)
	return r
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		gatewayName    string
		payload        string
		setupMock      func(*BillingServiceMock)
		wantStatusCode int
		wantStatus     string
		wantError      string
		wantOutcome    string
	}{
		{
			name:        "granted",
			gatewayName: "stripe",
			payload:     `{"id":"evt_1"}`,
			setupMock: func(m *BillingServiceMock) {
				m.On("HandleWebhook", mock.Anything, "stripe", []byte(`{"id":"evt_1"}`), mock.Anything).
					Return(billing.Outcome{Kind: billing.OutcomeGranted}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
			wantOutcome:    "granted",
		},
		{
			name:        "replay returns already_processed with 200",
			gatewayName: "razorpay",
			payload:     `{"id":"evt_1"}`,
			setupMock: func(m *BillingServiceMock) {
				m.On("HandleWebhook", mock.Anything, "razorpay", mock.Anything, mock.Anything).
					Return(billing.Outcome{Kind: billing.OutcomeAlreadyProcessed}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
			wantOutcome:    "already_processed",
		},
		{
			name:        "rejected event still returns 200",
			gatewayName: "stripe",
			payload:     `{"id":"evt_1"}`,
			setupMock: func(m *BillingServiceMock) {
				m.On("HandleWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
					Return(billing.Outcome{Kind: billing.OutcomeRejected, Reason: "payment is not verified"}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
			wantOutcome:    "rejected",
		},
		{
			name:        "unknown gateway",
			gatewayName: "paypal",
			payload:     `{}`,
			setupMock: func(m *BillingServiceMock) {
				m.On("HandleWebhook", mock.Anything, "paypal", mock.Anything, mock.Anything).
					Return(billing.Outcome{}, gateway.ErrUnknownGateway).Once()
			},
			wantStatusCode: http.StatusNotFound,
			wantStatus:     "Error",
			wantError:      "unknown payment gateway",
		},
		{
			name:        "invalid signature",
			gatewayName: "stripe",
			payload:     `{}`,
			setupMock: func(m *BillingServiceMock) {
				m.On("HandleWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
					Return(billing.Outcome{}, gateway.ErrSignatureInvalid).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid webhook signature",
		},
		{
			name:        "storage failure",
			gatewayName: "stripe",
			payload:     `{}`,
			setupMock: func(m *BillingServiceMock) {
				m.On("HandleWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
					Return(billing.Outcome{}, errors.New("db down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
			wantError:      "failed to process webhook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(BillingServiceMock)
			tt.setupMock(serviceMock)
			router := newTestRouter(serviceMock)

			req := httptest.NewRequest(http.MethodPost,
				"/billing/webhook/"+tt.gatewayName, bytes.NewReader([]byte(tt.payload)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err := json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}
			if tt.wantOutcome != "" {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, tt.wantOutcome, data["status"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
