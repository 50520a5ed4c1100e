// Package wallet is the stored-value ledger: credits, debits, balance queries and
// gateway top-up initiation. Balance changes and their ledger entries are written
// together by the storage layer.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/dynasty-membership/internal/metrics"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/paymentprovider"
)

// DescriptionTopUp labels gateway top-up credits.
const DescriptionTopUp = "Wallet Top-up via Razorpay"

// MaxAmount caps a single credit, debit or top-up, in rupees.
var MaxAmount = decimal.NewFromInt(500000)

// Repository is the wallet storage.
type Repository interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, description string, paymentRef *string) (decimal.Decimal, error)
	DebitWallet(ctx context.Context, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error)
}

// Gateway creates payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, params paymentprovider.CreateOrderRequest) (*paymentprovider.Order, error)
	KeyID() string
	Currency() string
}

// Service implements the wallet operations.
type Service struct {
	repo    Repository
	gateway Gateway
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a Service.
func New(repo Repository, gateway Gateway, m *metrics.Metrics, log *slog.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		metrics: m,
		log:     log,
	}
}

// Credit adds amount to the user's wallet, creating it if needed, and returns the new balance.
func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	const op = "services.wallet.Credit"
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	balance, err := s.repo.CreditWallet(ctx, userID, amount, description, nil)
	s.metrics.WalletOps.WithLabelValues("credit", metrics.Result(err)).Inc()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("wallet credited", slog.String("op", op), slog.String("user_id", userID),
		slog.String("amount", amount.StringFixed(2)), slog.String("balance", balance.StringFixed(2)))
	return balance, nil
}

// Debit removes amount from the user's wallet. It fails with ErrInsufficientFunds,
// leaving the wallet untouched, when the balance is short or no wallet exists.
func (s *Service) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	const op = "services.wallet.Debit"
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	balance, err := s.repo.DebitWallet(ctx, userID, amount, description)
	s.metrics.WalletOps.WithLabelValues("debit", metrics.Result(err)).Inc()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("wallet debited", slog.String("op", op), slog.String("user_id", userID),
		slog.String("amount", amount.StringFixed(2)), slog.String("balance", balance.StringFixed(2)))
	return balance, nil
}

// GetBalance returns the wallet with its history. A user without a wallet gets
// a zero balance and an empty history.
func (s *Service) GetBalance(ctx context.Context, userID string) (*models.Wallet, error) {
	const op = "services.wallet.GetBalance"

	w, err := s.repo.GetWallet(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.Wallet{
			UserID:       userID,
			Balance:      decimal.Zero,
			Transactions: []models.WalletTransaction{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// InitiateTopUp creates a gateway order for amount rupees. The wallet is credited
// only when the captured-payment webhook arrives.
func (s *Service) InitiateTopUp(ctx context.Context, userID string, amount decimal.Decimal) (*models.TopUpResult, error) {
	const op = "services.wallet.InitiateTopUp"
	if err := checkAmount(amount); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paise := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	start := time.Now()
	order, err := s.gateway.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:   paise,
		Currency: s.gateway.Currency(),
		Receipt:  userID,
		Notes: paymentprovider.Notes{
			paymentprovider.NoteType:   paymentprovider.NoteTypeWalletTopUp,
			paymentprovider.NoteUserID: userID,
		},
	})
	s.metrics.GatewayRequests.WithLabelValues("create_order", metrics.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("wallet top-up initiated", slog.String("op", op), slog.String("user_id", userID),
		slog.String("order_id", order.ID), slog.Int64("amount_paise", order.Amount))
	return &models.TopUpResult{
		PaymentType: "razorpay",
		Message:     "Wallet top-up initiated.",
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		KeyID:       s.gateway.KeyID(),
	}, nil
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount must have at most two decimal places", models.ErrValidation)
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount must not exceed %s", models.ErrValidation, MaxAmount.String())
	}
	return nil
}
