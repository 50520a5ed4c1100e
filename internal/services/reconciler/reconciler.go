// Package reconciler applies verified payment gateway webhooks: captured top-ups
// credit the wallet and captured membership payments activate the subscription.
// Every side effect is recorded against the gateway payment id in the same
// storage transaction, so redelivered events are no-ops.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/metrics"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/paymentprovider"
	"github.com/magabrotheeeer/dynasty-membership/internal/rabbitmq"
	"github.com/magabrotheeeer/dynasty-membership/internal/services/wallet"
)

// Outcome describes what a delivery did.
type Outcome string

const (
	OutcomeRejected              Outcome = "rejected_signature"
	OutcomeMalformed             Outcome = "malformed"
	OutcomeIgnored               Outcome = "ignored"
	OutcomeWalletCredited        Outcome = "wallet_credited"
	OutcomeSubscriptionActivated Outcome = "subscription_activated"
	OutcomeDuplicate             Outcome = "duplicate"
	OutcomeUnmatched             Outcome = "unmatched"
	OutcomeTerminal              Outcome = "terminal_state"
	OutcomeFailed                Outcome = "failed"
)

// Repository is the storage used to apply captured payments.
type Repository interface {
	CreditWalletOnce(ctx context.Context, ev models.ProcessedPayment, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error)
	ActivateSubscriptionOnce(ctx context.Context, ev models.ProcessedPayment, id, orderID string) (*models.UserSubscription, error)
	GetSubscriptionByOrderID(ctx context.Context, orderID string) (*models.UserSubscription, error)
}

// Publisher emits events after a payment is applied.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Reconciler verifies and applies webhook deliveries.
type Reconciler struct {
	secret    string
	repo      Repository
	publisher Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// New creates a Reconciler that verifies deliveries with the webhook secret.
func New(secret string, repo Repository, publisher Publisher, m *metrics.Metrics, log *slog.Logger) *Reconciler {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Reconciler{
		secret:    secret,
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one delivery. The only error it returns is ErrAuthenticationFailed;
// any delivery with a valid signature is acknowledged and its Outcome reports what happened.
func (r *Reconciler) Handle(ctx context.Context, body []byte, signature string) (Outcome, error) {
	const op = "services.reconciler.Handle"
	log := r.log.With(slog.String("op", op))

	if !paymentprovider.VerifyWebhookSignature(body, signature, r.secret) {
		r.record(OutcomeRejected)
		log.Warn("webhook signature mismatch")
		return OutcomeRejected, fmt.Errorf("%s: %w", op, models.ErrAuthenticationFailed)
	}

	outcome := r.apply(ctx, log, body)
	r.record(outcome)
	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, log *slog.Logger, body []byte) Outcome {
	var event paymentprovider.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to decode webhook body", sl.Err(err))
		return OutcomeMalformed
	}
	log = log.With(slog.String("event", event.Event))

	if event.Event != paymentprovider.EventPaymentCaptured {
		log.Info("webhook event ignored")
		return OutcomeIgnored
	}
	payment, ok := event.PaymentEntity()
	if !ok {
		log.Error("captured event without payment entity")
		return OutcomeMalformed
	}
	log = log.With(slog.String("payment_id", payment.ID), slog.String("order_id", payment.OrderID))

	if payment.Notes[paymentprovider.NoteType] == paymentprovider.NoteTypeWalletTopUp {
		return r.creditTopUp(ctx, log, event.Event, payment)
	}
	return r.activateSubscription(ctx, log, event.Event, payment)
}

func (r *Reconciler) creditTopUp(ctx context.Context, log *slog.Logger, event string, p *paymentprovider.Payment) Outcome {
	userID := p.Notes[paymentprovider.NoteUserID]
	if userID == "" || p.Amount <= 0 {
		log.Error("top-up payment without user or amount", slog.Int64("amount", p.Amount))
		return OutcomeMalformed
	}
	log = log.With(slog.String("user_id", userID))

	amount := decimal.New(p.Amount, -2)
	balance, err := r.repo.CreditWalletOnce(ctx, r.processed(p.ID, event, models.PurposeWalletTopUp),
		userID, amount, wallet.DescriptionTopUp)
	r.metrics.WalletOps.WithLabelValues("credit", metrics.Result(err)).Inc()
	switch {
	case errors.Is(err, models.ErrAlreadyProcessed):
		log.Info("top-up already credited")
		return OutcomeDuplicate
	case err != nil:
		log.Error("failed to credit top-up", sl.Err(err))
		return OutcomeFailed
	}
	log.Info("wallet top-up credited", slog.String("amount", amount.StringFixed(2)),
		slog.String("balance", balance.StringFixed(2)))

	r.publish(ctx, log, rabbitmq.RoutingWalletCredited, models.WalletEvent{
		UserID:     userID,
		Amount:     amount,
		Balance:    balance,
		PaymentID:  p.ID,
		OccurredAt: r.now(),
	})
	return OutcomeWalletCredited
}

func (r *Reconciler) activateSubscription(ctx context.Context, log *slog.Logger, event string, p *paymentprovider.Payment) Outcome {
	id, err := r.resolveSubscription(ctx, p)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Error("no subscription for captured payment", slog.String("receipt", p.Receipt))
			return OutcomeUnmatched
		}
		log.Error("failed to resolve subscription", sl.Err(err))
		return OutcomeFailed
	}
	log = log.With(slog.String("subscription_id", id))

	sub, err := r.repo.ActivateSubscriptionOnce(ctx, r.processed(p.ID, event, models.PurposeSubscription), id, p.OrderID)
	switch {
	case errors.Is(err, models.ErrAlreadyProcessed):
		log.Info("payment already applied")
		return OutcomeDuplicate
	case errors.Is(err, models.ErrNotFound):
		log.Error("subscription not found for receipt", slog.String("receipt", p.Receipt))
		return OutcomeUnmatched
	case errors.Is(err, models.ErrIllegalTransition):
		log.Warn("subscription already in a terminal state", sl.Err(err))
		return OutcomeTerminal
	case err != nil:
		log.Error("failed to activate subscription", sl.Err(err))
		return OutcomeFailed
	}
	if p.Amount != sub.AmountPaid*100 {
		log.Warn("captured amount differs from subscription total",
			slog.Int64("captured", p.Amount), slog.Int64("expected", sub.AmountPaid*100))
	}
	log.Info("subscription activated")

	r.publish(ctx, log, rabbitmq.RoutingMembershipActivated, models.MembershipEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		PaymentMethod:  sub.PaymentMethod,
		AmountPaid:     sub.AmountPaid,
		EndDate:        sub.EndDate,
		OccurredAt:     r.now(),
	})
	return OutcomeSubscriptionActivated
}

// resolveSubscription finds the subscription a payment belongs to: the receipt,
// then the subscriptionId note, then the stored gateway order id.
func (r *Reconciler) resolveSubscription(ctx context.Context, p *paymentprovider.Payment) (string, error) {
	for _, candidate := range []string{p.Receipt, p.Notes[paymentprovider.NoteSubscriptionID]} {
		if _, err := uuid.Parse(candidate); err == nil {
			return candidate, nil
		}
	}
	if p.OrderID == "" {
		return "", models.ErrNotFound
	}
	sub, err := r.repo.GetSubscriptionByOrderID(ctx, p.OrderID)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (r *Reconciler) processed(paymentID, event, purpose string) models.ProcessedPayment {
	return models.ProcessedPayment{
		PaymentID:   paymentID,
		Event:       event,
		Purpose:     purpose,
		ProcessedAt: r.now(),
	}
}

func (r *Reconciler) publish(ctx context.Context, log *slog.Logger, routingKey string, msg any) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, routingKey, msg); err != nil {
		log.Warn("failed to publish event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

func (r *Reconciler) record(o Outcome) {
	r.metrics.WebhookOutcomes.WithLabelValues(string(o)).Inc()
}
