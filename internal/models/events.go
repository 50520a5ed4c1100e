package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purposes recorded alongside processed gateway payments.
const (
	PurposeWalletTopUp  = "wallet_topup"
	PurposeSubscription = "subscription"
)

// ProcessedPayment marks a gateway payment whose side effect has been applied.
type ProcessedPayment struct {
	PaymentID   string    `json:"payment_id"`
	Event       string    `json:"event"`
	Purpose     string    `json:"purpose"`
	ProcessedAt time.Time `json:"processed_at"`
}

// MembershipEvent is published when a subscription becomes Active.
type MembershipEvent struct {
	SubscriptionID string             `json:"subscription_id"`
	UserID         string             `json:"user_id"`
	PlanID         string             `json:"plan_id"`
	Status         SubscriptionStatus `json:"status"`
	PaymentMethod  PaymentMethod      `json:"payment_method"`
	AmountPaid     int64              `json:"amount_paid"`
	EndDate        time.Time          `json:"end_date"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// WalletEvent is published after a wallet top-up is credited.
type WalletEvent struct {
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	PaymentID  string          `json:"payment_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ExpiringMembership is the reminder payload for memberships ending tomorrow.
type ExpiringMembership struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PlanName       string    `json:"plan_name"`
	EndDate        time.Time `json:"end_date"`
}
