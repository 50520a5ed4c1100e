package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a wallet ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// WalletTransaction is one append-only ledger entry. Amount is always positive.
type WalletTransaction struct {
	ID          int64           `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PaymentRef  *string         `json:"payment_ref,omitempty"`
	CreatedAt   time.Time       `json:"date"`
}

// Wallet is a per-user stored-value balance.
// Balance always equals the signed sum of Transactions.
type Wallet struct {
	UserID       string              `json:"user_id"`
	Balance      decimal.Decimal     `json:"balance"`
	Transactions []WalletTransaction `json:"transactions"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// SignedSum folds the transaction history into a balance.
func (w *Wallet) SignedSum() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range w.Transactions {
		switch t.Type {
		case TransactionCredit:
			sum = sum.Add(t.Amount)
		case TransactionDebit:
			sum = sum.Sub(t.Amount)
		}
	}
	return sum
}

// TopUpRequest is the body of POST /wallet/topup, amount in rupees.
type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TopUpResult carries the gateway order the client must complete.
type TopUpResult struct {
	PaymentType string `json:"paymentType"`
	Message     string `json:"message,omitempty"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// WalletAdjustRequest is the admin body for a manual wallet correction, amount in rupees.
type WalletAdjustRequest struct {
	Type        TransactionType `json:"type" validate:"required,oneof=credit debit"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
	Description string          `json:"description" validate:"required"`
}
