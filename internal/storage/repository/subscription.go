package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/subscription"
)

const subscriptionColumns = `id, user_id, plan_id, start_date, end_date, amount_paid, payment_method,
	status, gateway_order_id, gateway_payment_id, failure_reason, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.UserSubscription, error) {
	var (
		sub                      models.UserSubscription
		orderID, paymentID, fail sql.NullString
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.StartDate, &sub.EndDate,
		&sub.AmountPaid, &sub.PaymentMethod, &sub.Status, &orderID, &paymentID, &fail,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.GatewayOrderID = stringPtr(orderID)
	sub.GatewayPaymentID = stringPtr(paymentID)
	sub.FailureReason = stringPtr(fail)
	return &sub, nil
}

// statusGuard renders "status IN ($n, ...)" for the statuses allowed to move to `to`,
// numbering placeholders from start.
func statusGuard(to models.SubscriptionStatus, start int) (string, []any) {
	sources := subscription.Sources(to)
	placeholders := make([]string, 0, len(sources))
	args := make([]any, 0, len(sources))
	for i, st := range sources {
		placeholders = append(placeholders, "$"+strconv.Itoa(start+i))
		args = append(args, string(st))
	}
	if len(placeholders) == 0 {
		return "FALSE", nil
	}
	return "status IN (" + strings.Join(placeholders, ", ") + ")", args
}

// CreateSubscription inserts a new subscription record.
func (s *Storage) CreateSubscription(ctx context.Context, sub *models.UserSubscription) error {
	const op = "storage.CreateSubscription"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO user_subscriptions (id, user_id, plan_id, start_date, end_date,
				  amount_paid, payment_method, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.PlanID, sub.StartDate, sub.EndDate, sub.AmountPaid,
		string(sub.PaymentMethod), string(sub.Status), sub.CreatedAt, sub.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriptionByOrderID returns the subscription a gateway order was created for.
func (s *Storage) GetSubscriptionByOrderID(ctx context.Context, orderID string) (*models.UserSubscription, error) {
	const op = "storage.GetSubscriptionByOrderID"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}
	return getSubscription(ctx, s.DB, op, `gateway_order_id = $1`, orderID)
}

func getSubscription(ctx context.Context, q querier, op, where string, arg any) (*models.UserSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE ` + where
	sub, err := scanSubscription(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubscriptionsByUser returns a user's subscriptions, newest first.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.UserSubscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM user_subscriptions
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.UserSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SetGatewayOrder records the gateway order created for a subscription.
func (s *Storage) SetGatewayOrder(ctx context.Context, id, orderID string) error {
	const op = "storage.SetGatewayOrder"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	query := `UPDATE user_subscriptions SET gateway_order_id = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// TransitionSubscription moves a subscription to `to` only from a status the lifecycle allows.
// reason is stored as the failure reason when not nil.
func (s *Storage) TransitionSubscription(ctx context.Context, id string, to models.SubscriptionStatus, reason *string) (*models.UserSubscription, error) {
	const op = "storage.TransitionSubscription"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}
	sub, err := transition(ctx, s.DB, id, to, reason, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func transition(ctx context.Context, q querier, id string, to models.SubscriptionStatus,
	reason, orderID, paymentID *string) (*models.UserSubscription, error) {
	guard, guardArgs := statusGuard(to, 6)
	query := `UPDATE user_subscriptions
			  SET status = $2,
			      failure_reason = COALESCE($3, failure_reason),
			      gateway_order_id = COALESCE($4, gateway_order_id),
			      gateway_payment_id = COALESCE($5, gateway_payment_id),
			      updated_at = NOW()
			  WHERE id = $1 AND ` + guard + `
			  RETURNING ` + subscriptionColumns
	args := append([]any{id, string(to), nullString(reason), nullString(orderID), nullString(paymentID)}, guardArgs...)

	sub, err := scanSubscription(q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var current models.SubscriptionStatus
	err = q.QueryRowContext(ctx, `SELECT status FROM user_subscriptions WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, current, to)
}

// ActivateSubscriptionOnce activates a subscription for a captured payment. The payment is
// recorded in the same transaction, so a repeated delivery returns ErrAlreadyProcessed.
func (s *Storage) ActivateSubscriptionOnce(ctx context.Context, ev models.ProcessedPayment,
	id, orderID string) (*models.UserSubscription, error) {
	const op = "storage.ActivateSubscriptionOnce"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var sub *models.UserSubscription
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := markProcessed(ctx, tx, ev); err != nil {
			return err
		}
		var order *string
		if orderID != "" {
			order = &orderID
		}
		paymentID := ev.PaymentID
		var err error
		sub, err = transition(ctx, tx, id, models.StatusActive, nil, order, &paymentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func markProcessed(ctx context.Context, q querier, ev models.ProcessedPayment) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO processed_payment_events (payment_id, event, purpose, processed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (payment_id) DO NOTHING`,
		ev.PaymentID, ev.Event, ev.Purpose, ev.ProcessedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrAlreadyProcessed
	}
	return nil
}

// FailStaleProcessing fails Processing subscriptions created before olderThan: wallet
// purchases whose debit was rejected and gateway checkouts that were never paid. A capture
// arriving after the sweep finds the subscription Failed and is left for a manual refund.
func (s *Storage) FailStaleProcessing(ctx context.Context, olderThan time.Time, reason string) ([]models.UserSubscription, error) {
	const op = "storage.FailStaleProcessing"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE user_subscriptions
			  SET status = $1, failure_reason = $2, updated_at = NOW()
			  WHERE status = $3 AND created_at < $4
			  RETURNING ` + subscriptionColumns
	rows, err := s.DB.QueryContext(ctx, query,
		string(models.StatusFailed), reason, string(models.StatusProcessing), olderThan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.UserSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindExpiringBetween returns active memberships whose end date falls in [from, to).
func (s *Storage) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiringMembership, error) {
	const op = "storage.FindExpiringBetween"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT us.id, us.user_id, u.email, u.name, mp.name, us.end_date
			  FROM user_subscriptions us
			  JOIN users u ON u.id = us.user_id
			  JOIN membership_plans mp ON mp.id = us.plan_id
			  WHERE us.status = $1 AND us.end_date >= $2 AND us.end_date < $3 AND u.is_enabled
			  ORDER BY us.end_date`
	rows, err := s.DB.QueryContext(ctx, query, string(models.StatusActive), from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.ExpiringMembership{}
	for rows.Next() {
		var m models.ExpiringMembership
		if err = rows.Scan(&m.SubscriptionID, &m.UserID, &m.Email, &m.Name, &m.PlanName, &m.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
