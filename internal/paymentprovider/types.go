package paymentprovider

import (
	"encoding/json"
	"fmt"
)

// EventPaymentCaptured is the only webhook event that moves money.
const EventPaymentCaptured = "payment.captured"

// Note keys and values attached to orders so webhooks can be correlated.
const (
	NoteType           = "type"
	NoteUserID         = "userId"
	NoteSubscriptionID = "subscriptionId"

	NoteTypeWalletTopUp = "Wallet_TopUp"
	NoteTypeMembership  = "Membership"
)

// Notes is the free-form key/value map Razorpay echoes back on orders and payments.
// Razorpay renders an empty map as [], and values may be numbers.
type Notes map[string]string

// UnmarshalJSON accepts an object, an empty array or null.
func (n *Notes) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Notes{}
	switch v := raw.(type) {
	case nil:
	case []any:
		if len(v) != 0 {
			return fmt.Errorf("notes: unexpected non-empty array")
		}
	case map[string]any:
		for k, val := range v {
			switch t := val.(type) {
			case string:
				out[k] = t
			case nil:
				out[k] = ""
			default:
				out[k] = fmt.Sprint(t)
			}
		}
	default:
		return fmt.Errorf("notes: unexpected JSON type %T", raw)
	}
	*n = out
	return nil
}

// CreateOrderRequest is the body of POST /orders. Amount is in paise.
type CreateOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Notes    Notes  `json:"notes,omitempty"`
}

// Order is a Razorpay order.
type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	Notes      Notes  `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

// Payment is the payment entity carried by payment.* webhooks.
type Payment struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Receipt  string `json:"receipt"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Notes    Notes  `json:"notes"`
}

// WebhookEvent is the envelope of a Razorpay webhook delivery.
type WebhookEvent struct {
	Entity  string `json:"entity"`
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity Order `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// PaymentEntity returns the payment carried by the event, if any.
func (e *WebhookEvent) PaymentEntity() (*Payment, bool) {
	if e.Payload.Payment == nil || e.Payload.Payment.Entity.ID == "" {
		return nil, false
	}
	p := e.Payload.Payment.Entity
	if p.Receipt == "" && e.Payload.Order != nil {
		p.Receipt = e.Payload.Order.Entity.Receipt
	}
	return &p, true
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
