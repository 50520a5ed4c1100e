package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/dynasty-membership/internal/migrations"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/subscription"
)

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("membership"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, storage))
	return storage
}

// testDataFactory seeds rows the tests depend on.
type testDataFactory struct {
	storage *Storage
}

func (f *testDataFactory) createUser(t *testing.T) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`,
		id, "Test User", id+"@example.com", models.RoleCustomer)
	require.NoError(t, err)
	return id
}

func (f *testDataFactory) createPlan(t *testing.T, discountPrice int64) *models.MembershipPlan {
	t.Helper()
	plan := &models.MembershipPlan{
		ID:            uuid.NewString(),
		Name:          "30 Days",
		Description:   "Monthly membership",
		DurationDays:  30,
		OriginalPrice: discountPrice * 2,
		DiscountPrice: discountPrice,
		Benefits:      []string{"Free delivery"},
		IsActive:      true,
	}
	require.NoError(t, f.storage.CreatePlan(context.Background(), plan))
	return plan
}

func (f *testDataFactory) createSubscription(t *testing.T, userID string, plan *models.MembershipPlan,
	method models.PaymentMethod) *models.UserSubscription {
	t.Helper()
	sub := subscription.New(uuid.NewString(), userID, plan, method, time.Now().UTC())
	require.NoError(t, f.storage.CreateSubscription(context.Background(), &sub))
	return &sub
}

func TestIntegration_WalletBalanceMatchesLedger(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()
	userID := f.createUser(t)

	_, err := s.CreditWallet(ctx, userID, decimal.RequireFromString("1500.50"), "Admin credit", nil)
	require.NoError(t, err)
	_, err = s.DebitWallet(ctx, userID, decimal.RequireFromString("320.25"), "Order #1")
	require.NoError(t, err)
	_, err = s.DebitWallet(ctx, userID, decimal.RequireFromString("5000"), "Too much")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	w, err := s.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1180.25").Equal(w.Balance), "balance %s", w.Balance)
	assert.True(t, w.Balance.Equal(w.SignedSum()))
	assert.Len(t, w.Transactions, 2)
}

func TestIntegration_ConcurrentDebitsExactlyOneSucceeds(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()
	userID := f.createUser(t)

	_, err := s.CreditWallet(ctx, userID, decimal.NewFromInt(1000), "seed", nil)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.DebitWallet(ctx, userID, decimal.NewFromInt(700), "concurrent")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, models.ErrInsufficientFunds):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, short)

	w, err := s.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(w.Balance))
	assert.True(t, w.Balance.Equal(w.SignedSum()))
}

func TestIntegration_TopUpReplayCreditsOnce(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()
	userID := f.createUser(t)

	ev := models.ProcessedPayment{
		PaymentID:   "pay_replay",
		Event:       "payment.captured",
		Purpose:     models.PurposeWalletTopUp,
		ProcessedAt: time.Now(),
	}
	_, err := s.CreditWalletOnce(ctx, ev, userID, decimal.NewFromInt(500), "Wallet Top-up via Razorpay")
	require.NoError(t, err)
	_, err = s.CreditWalletOnce(ctx, ev, userID, decimal.NewFromInt(500), "Wallet Top-up via Razorpay")
	require.ErrorIs(t, err, models.ErrAlreadyProcessed)

	w, err := s.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(w.Balance))
	require.Len(t, w.Transactions, 1)
	require.NotNil(t, w.Transactions[0].PaymentRef)
	assert.Equal(t, "pay_replay", *w.Transactions[0].PaymentRef)

	var processed int
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_payment_events WHERE payment_id = $1`, "pay_replay").Scan(&processed)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}

func loadSubscription(ctx context.Context, s *Storage, id string) (*models.UserSubscription, error) {
	return getSubscription(ctx, s.DB, "test.loadSubscription", `id = $1`, id)
}

func TestIntegration_PayWithWallet(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()
	userID := f.createUser(t)
	plan := f.createPlan(t, 1000)

	t.Run("insufficient funds keeps subscription processing", func(t *testing.T) {
		sub := f.createSubscription(t, userID, plan, models.PaymentWallet)
		_, _, err := s.PayWithWallet(ctx, sub.ID, userID, decimal.NewFromInt(sub.AmountPaid), "Membership purchase")
		require.ErrorIs(t, err, models.ErrInsufficientFunds)

		got, err := loadSubscription(ctx, s, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, got.Status)
	})

	t.Run("exact balance activates", func(t *testing.T) {
		_, err := s.CreditWallet(ctx, userID, decimal.NewFromInt(1180), "seed", nil)
		require.NoError(t, err)

		sub := f.createSubscription(t, userID, plan, models.PaymentWallet)
		got, balance, err := s.PayWithWallet(ctx, sub.ID, userID, decimal.NewFromInt(sub.AmountPaid), "Membership purchase")
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
		assert.True(t, balance.IsZero())
	})
}

func TestIntegration_ActivateOnceAndTerminalStates(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()
	userID := f.createUser(t)
	plan := f.createPlan(t, 1000)
	sub := f.createSubscription(t, userID, plan, models.PaymentRazorpay)
	require.NoError(t, s.SetGatewayOrder(ctx, sub.ID, "order_abc"))

	byOrder, err := s.GetSubscriptionByOrderID(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byOrder.ID)

	ev := models.ProcessedPayment{PaymentID: "pay_abc", Event: "payment.captured",
		Purpose: models.PurposeSubscription, ProcessedAt: time.Now()}
	got, err := s.ActivateSubscriptionOnce(ctx, ev, sub.ID, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	require.NotNil(t, got.GatewayPaymentID)
	assert.Equal(t, "pay_abc", *got.GatewayPaymentID)

	_, err = s.ActivateSubscriptionOnce(ctx, ev, sub.ID, "order_abc")
	require.ErrorIs(t, err, models.ErrAlreadyProcessed)

	reason := "late failure"
	_, err = s.TransitionSubscription(ctx, sub.ID, models.StatusFailed, &reason)
	require.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestIntegration_FailStaleProcessing(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()
	userID := f.createUser(t)
	plan := f.createPlan(t, 500)

	stale := f.createSubscription(t, userID, plan, models.PaymentWallet)
	withOrder := f.createSubscription(t, userID, plan, models.PaymentRazorpay)
	require.NoError(t, s.SetGatewayOrder(ctx, withOrder.ID, "order_live"))
	cod := f.createSubscription(t, userID, plan, models.PaymentCOD)

	failed, err := s.FailStaleProcessing(ctx, time.Now().Add(time.Minute), "payment not completed")
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.ElementsMatch(t, []string{stale.ID, withOrder.ID}, []string{failed[0].ID, failed[1].ID})

	got, err := loadSubscription(ctx, s, withOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "payment not completed", *got.FailureReason)

	ev := models.ProcessedPayment{PaymentID: "pay_late", Event: "payment.captured",
		Purpose: models.PurposeSubscription, ProcessedAt: time.Now()}
	_, err = s.ActivateSubscriptionOnce(ctx, ev, withOrder.ID, "order_live")
	require.ErrorIs(t, err, models.ErrIllegalTransition)

	got, err = loadSubscription(ctx, s, cod.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestIntegration_PlansAndExpiring(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	short := f.createPlan(t, 500)
	long := f.createPlan(t, 1000)
	long.DurationDays = 90
	long.Name = "90 Days"
	require.NoError(t, s.UpdatePlan(ctx, long))

	plans, err := s.ListActivePlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, long.ID, plans[0].ID)
	assert.Equal(t, short.ID, plans[1].ID)

	missing := *short
	missing.ID = uuid.NewString()
	require.ErrorIs(t, s.UpdatePlan(ctx, &missing), models.ErrNotFound)

	userID := f.createUser(t)
	sub := f.createSubscription(t, userID, short, models.PaymentCOD)
	_, err = s.TransitionSubscription(ctx, sub.ID, models.StatusActive, nil)
	require.NoError(t, err)

	expiring, err := s.FindExpiringBetween(ctx, sub.EndDate.Add(-time.Hour), sub.EndDate.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "30 Days", expiring[0].PlanName)

	u, err := s.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)

	_, err = s.GetUser(ctx, uuid.NewString())
	require.True(t, errors.Is(err, models.ErrNotFound))
}
