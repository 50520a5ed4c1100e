package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Purchase(ctx context.Context, userID, planID string, method models.PaymentMethod) (*models.PurchaseResult, error) {
	args := m.Called(ctx, userID, planID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const planID = "9c1d4e2a-3b5f-4c6d-8e7f-1a2b3c4d5e6f"

func TestPurchaseHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		userID         string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "razorpay checkout",
			body:   `{"planId":"` + planID + `","paymentMethod":"Razorpay"}`,
			userID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("Purchase", mock.Anything, "user-1", planID, models.PaymentRazorpay).Return(&models.PurchaseResult{
					SubscriptionID: "sub-1", Status: models.StatusProcessing, PaymentType: "razorpay",
					OrderID: "order_1", Amount: 118000, Currency: "INR", KeyID: "rzp_key",
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"orderId":"order_1"`,
		},
		{
			name:   "insufficient wallet balance",
			body:   `{"planId":"` + planID + `","paymentMethod":"Wallet"}`,
			userID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("Purchase", mock.Anything, "user-1", planID, models.PaymentWallet).
					Return(nil, fmt.Errorf("op: %w", models.ErrInsufficientFunds)).Once()
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   `"code":"INSUFFICIENT_FUNDS"`,
		},
		{
			name:   "gateway down",
			body:   `{"planId":"` + planID + `","paymentMethod":"Razorpay"}`,
			userID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("Purchase", mock.Anything, "user-1", planID, models.PaymentRazorpay).Return(nil, models.ErrUpstream).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"code":"UPSTREAM_FAILURE"`,
		},
		{
			name:           "unknown payment method",
			body:           `{"planId":"` + planID + `","paymentMethod":"Cash"}`,
			userID:         "user-1",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"code":"VALIDATION_ERROR"`,
		},
		{
			name:           "malformed plan id",
			body:           `{"planId":"abc","paymentMethod":"COD"}`,
			userID:         "user-1",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"code":"VALIDATION_ERROR"`,
		},
		{
			name:           "invalid json",
			body:           `{"planId":`,
			userID:         "user-1",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"BAD_REQUEST"`,
		},
		{
			name:           "unauthenticated",
			body:           `{"planId":"` + planID + `","paymentMethod":"COD"}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"code":"UNAUTHORIZED"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			}
			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestPurchaseHandler_ResponseShape(t *testing.T) {
	svc := new(MockService)
	svc.On("Purchase", mock.Anything, "user-1", planID, models.PaymentCOD).Return(&models.PurchaseResult{
		SubscriptionID: "sub-1", Status: models.StatusPending, PaymentType: "cod",
		Message: "Order placed! Pay on delivery.", Amount: 1180,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(`{"planId":"`+planID+`","paymentMethod":"COD"}`))
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, "user-1"))
	rr := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rr, req)

	var body struct {
		Status string                `json:"status"`
		Data   models.PurchaseResult `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, models.StatusPending, body.Data.Status)
	assert.Equal(t, "Order placed! Pay on delivery.", body.Data.Message)
}
