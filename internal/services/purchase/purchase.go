// Package purchase orchestrates a membership purchase: it prices the plan,
// records the subscription and settles it through the gateway, the wallet or
// cash on delivery.
package purchase

import (
	"context"
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
	"github.com/magabrotheeeer/dynasty-membership/internal/subscription"
)

// DescriptionMembership labels wallet debits for memberships.
const DescriptionMembership = "Premium Membership"

// Repository is the storage used by a purchase.
type Repository interface {
	GetPlan(ctx context.Context, id string) (*models.MembershipPlan, error)
	CreateSubscription(ctx context.Context, sub *models.UserSubscription) error
	SetGatewayOrder(ctx context.Context, id, orderID string) error
	TransitionSubscription(ctx context.Context, id string, to models.SubscriptionStatus, reason *string) (*models.UserSubscription, error)
	PayWithWallet(ctx context.Context, subscriptionID, userID string, amount decimal.Decimal, description string) (*models.UserSubscription, decimal.Decimal, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.UserSubscription, error)
}

// Gateway creates payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, params paymentprovider.CreateOrderRequest) (*paymentprovider.Order, error)
	KeyID() string
	Currency() string
}

// Publisher emits membership events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service implements Purchase.
type Service struct {
	repo      Repository
	gateway   Gateway
	publisher Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// New creates a Service. publisher may be nil.
func New(repo Repository, gateway Gateway, publisher Publisher, m *metrics.Metrics, log *slog.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Purchase buys planID for userID with method.
//
// COD leaves the subscription Pending. Wallet debits the total and activates the
// subscription atomically; on ErrInsufficientFunds it stays Processing. Razorpay
// creates a gateway order correlated by the subscription id and returns the
// checkout parameters; if the order cannot be created the subscription is Failed.
func (s *Service) Purchase(ctx context.Context, userID, planID string, method models.PaymentMethod) (*models.PurchaseResult, error) {
	const op = "services.purchase.Purchase"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID),
		slog.String("plan_id", planID), slog.String("method", string(method)))

	res, err := s.purchase(ctx, log, userID, planID, method)
	s.metrics.Purchases.WithLabelValues(string(method), resultLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) purchase(ctx context.Context, log *slog.Logger, userID, planID string, method models.PaymentMethod) (*models.PurchaseResult, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", models.ErrValidation, method)
	}
	if _, err := uuid.Parse(planID); err != nil {
		return nil, fmt.Errorf("%w: malformed plan id", models.ErrValidation)
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan %s is inactive", models.ErrNotFound, planID)
	}

	sub := subscription.New(uuid.NewString(), userID, plan, method, s.now())
	if err = s.repo.CreateSubscription(ctx, &sub); err != nil {
		return nil, err
	}
	log = log.With(slog.String("subscription_id", sub.ID), slog.Int64("amount", sub.AmountPaid))
	log.Info("subscription created", slog.String("status", string(sub.Status)))

	switch method {
	case models.PaymentRazorpay:
		return s.payWithGateway(ctx, log, &sub)
	case models.PaymentWallet:
		return s.payWithWallet(ctx, log, &sub)
	default:
		return &models.PurchaseResult{
			SubscriptionID: sub.ID,
			Status:         sub.Status,
			PaymentType:    "cod",
			Message:        "Order placed! Pay on delivery.",
			Amount:         sub.AmountPaid,
		}, nil
	}
}

func (s *Service) payWithGateway(ctx context.Context, log *slog.Logger, sub *models.UserSubscription) (*models.PurchaseResult, error) {
	start := time.Now()
	order, err := s.gateway.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:   sub.AmountPaid * 100,
		Currency: s.gateway.Currency(),
		Receipt:  sub.ID,
		Notes: paymentprovider.Notes{
			paymentprovider.NoteType:           paymentprovider.NoteTypeMembership,
			paymentprovider.NoteSubscriptionID: sub.ID,
			paymentprovider.NoteUserID:         sub.UserID,
		},
	})
	s.metrics.GatewayRequests.WithLabelValues("create_order", metrics.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("failed to create gateway order", sl.Err(err))
		s.failSubscription(log, sub.ID, "gateway order creation failed")
		if !errors.Is(err, models.ErrUpstream) {
			err = fmt.Errorf("%w: %w", models.ErrUpstream, err)
		}
		return nil, err
	}

	if err = s.repo.SetGatewayOrder(ctx, sub.ID, order.ID); err != nil {
		// Webhooks correlate by receipt first.
		log.Error("failed to store gateway order id", slog.String("order_id", order.ID), sl.Err(err))
	}
	log.Info("gateway order created", slog.String("order_id", order.ID))

	return &models.PurchaseResult{
		SubscriptionID: sub.ID,
		Status:         sub.Status,
		PaymentType:    "razorpay",
		OrderID:        order.ID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

func (s *Service) payWithWallet(ctx context.Context, log *slog.Logger, sub *models.UserSubscription) (*models.PurchaseResult, error) {
	activated, balance, err := s.repo.PayWithWallet(ctx, sub.ID, sub.UserID, decimal.NewFromInt(sub.AmountPaid), DescriptionMembership)
	s.metrics.WalletOps.WithLabelValues("debit", metrics.Result(err)).Inc()
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			log.Info("wallet balance too low, subscription left processing")
		} else {
			log.Error("wallet payment failed", sl.Err(err))
		}
		return nil, err
	}
	log.Info("membership activated via wallet", slog.String("balance", balance.StringFixed(2)))

	s.publish(ctx, log, rabbitmq.RoutingMembershipActivated, models.MembershipEvent{
		SubscriptionID: activated.ID,
		UserID:         activated.UserID,
		PlanID:         activated.PlanID,
		Status:         activated.Status,
		PaymentMethod:  activated.PaymentMethod,
		AmountPaid:     activated.AmountPaid,
		EndDate:        activated.EndDate,
		OccurredAt:     s.now(),
	})

	return &models.PurchaseResult{
		SubscriptionID: activated.ID,
		Status:         activated.Status,
		PaymentType:    "wallet",
		Message:        "Membership activated via wallet!",
		Amount:         activated.AmountPaid,
	}, nil
}

// failSubscription uses its own context: the request context may already be canceled.
func (s *Service) failSubscription(log *slog.Logger, id, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.repo.TransitionSubscription(ctx, id, models.StatusFailed, &reason); err != nil {
		log.Error("failed to mark subscription failed", sl.Err(err))
	}
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, routingKey string, msg any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, msg); err != nil {
		log.Warn("failed to publish event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// ListForUser returns the user's subscriptions, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.UserSubscription, error) {
	const op = "services.purchase.ListForUser"
	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, models.ErrUpstream):
		return "upstream_failure"
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}
