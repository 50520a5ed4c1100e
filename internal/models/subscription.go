package models

import "time"

// PaymentMethod is how a membership is paid for.
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "COD"
	PaymentWallet   PaymentMethod = "Wallet"
	PaymentRazorpay PaymentMethod = "Razorpay"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentWallet, PaymentRazorpay:
		return true
	}
	return false
}

// SubscriptionStatus is the lifecycle state of a UserSubscription.
type SubscriptionStatus string

const (
	StatusPending    SubscriptionStatus = "Pending"
	StatusProcessing SubscriptionStatus = "Processing"
	StatusActive     SubscriptionStatus = "Active"
	StatusFailed     SubscriptionStatus = "Failed"
)

// UserSubscription is a user's purchase record for a plan. Rows are never deleted.
type UserSubscription struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	PlanID           string             `json:"plan_id"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	AmountPaid       int64              `json:"amount_paid"`
	PaymentMethod    PaymentMethod      `json:"payment_method"`
	Status           SubscriptionStatus `json:"status"`
	GatewayOrderID   *string            `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string            `json:"gateway_payment_id,omitempty"`
	FailureReason    *string            `json:"failure_reason,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PurchaseRequest is the body of POST /purchase.
type PurchaseRequest struct {
	PlanID        string        `json:"planId" validate:"required,uuid"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=COD Wallet Razorpay"`
}

// PurchaseResult is returned to the client after a purchase request.
// Gateway fields are set only for Razorpay purchases.
type PurchaseResult struct {
	SubscriptionID string             `json:"subscriptionId"`
	Status         SubscriptionStatus `json:"status"`
	PaymentType    string             `json:"paymentType"`
	Message        string             `json:"message,omitempty"`
	OrderID        string             `json:"orderId,omitempty"`
	Amount         int64              `json:"amount,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	KeyID          string             `json:"key_id,omitempty"`
}
