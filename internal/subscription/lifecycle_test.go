package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.SubscriptionStatus
		want     bool
	}{
		{models.StatusPending, models.StatusActive, true},
		{models.StatusPending, models.StatusFailed, true},
		{models.StatusProcessing, models.StatusActive, true},
		{models.StatusProcessing, models.StatusFailed, true},
		{models.StatusActive, models.StatusProcessing, false},
		{models.StatusActive, models.StatusFailed, false},
		{models.StatusFailed, models.StatusActive, false},
		{models.StatusPending, models.StatusProcessing, false},
		{models.StatusProcessing, models.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSources(t *testing.T) {
	assert.Equal(t, []models.SubscriptionStatus{models.StatusPending, models.StatusProcessing}, Sources(models.StatusActive))
	assert.Equal(t, []models.SubscriptionStatus{models.StatusPending, models.StatusProcessing}, Sources(models.StatusFailed))
	assert.Empty(t, Sources(models.StatusProcessing))
	assert.Empty(t, Sources(models.StatusPending))
}

func TestNew_SnapshotsPriceAndEndDate(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	plan := &models.MembershipPlan{ID: "plan-1", DurationDays: 90, OriginalPrice: 4199, DiscountPrice: 1000}

	sub := New("sub-1", "user-1", plan, models.PaymentWallet, now)

	assert.Equal(t, int64(1180), sub.AmountPaid)
	assert.Equal(t, now.AddDate(0, 0, 90), sub.EndDate)
	assert.Equal(t, models.StatusProcessing, sub.Status)

	plan.DiscountPrice = 2000
	assert.Equal(t, int64(1180), sub.AmountPaid)

	cod := New("sub-2", "user-1", plan, models.PaymentCOD, now)
	assert.Equal(t, models.StatusPending, cod.Status)
}
