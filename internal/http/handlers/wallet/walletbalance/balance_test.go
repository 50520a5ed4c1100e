package walletbalance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetBalance(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func serve(svc *MockService, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, userID))
	}
	rr := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rr, req)
	return rr
}

func TestWalletBalanceHandler_ServeHTTP(t *testing.T) {
	t.Run("empty wallet", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetBalance", mock.Anything, "user-1").
			Return(&models.Wallet{UserID: "user-1", Balance: decimal.Zero, Transactions: []models.WalletTransaction{}}, nil).Once()

		rr := serve(svc, "user-1")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"OK","data":{"balance":"0","transactions":[]}}`, rr.Body.String())
	})

	t.Run("with history", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetBalance", mock.Anything, "user-1").Return(&models.Wallet{
			Balance: decimal.RequireFromString("320.5"),
			Transactions: []models.WalletTransaction{
				{ID: 2, Type: models.TransactionDebit, Amount: decimal.NewFromInt(1180), Description: "Premium Membership"},
				{ID: 1, Type: models.TransactionCredit, Amount: decimal.RequireFromString("1500.5"), Description: "Wallet Top-up via Razorpay"},
			},
		}, nil).Once()

		rr := serve(svc, "user-1")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"balance":"320.5"`)
		assert.Contains(t, rr.Body.String(), `"description":"Premium Membership"`)
	})

	t.Run("storage error", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetBalance", mock.Anything, "user-1").Return(nil, errors.New("db error")).Once()
		assert.Equal(t, http.StatusInternalServerError, serve(svc, "user-1").Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(new(MockService), "").Code)
	})
}
