// Package subscription holds the membership lifecycle state machine.
//
//	Pending    -> Active | Failed
//	Processing -> Active | Failed
//
// Active and Failed are terminal. Storage enforces the same table in SQL
// through Sources, so a concurrent writer cannot resurrect a terminal row.
package subscription

import (
	"time"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

var transitions = map[models.SubscriptionStatus][]models.SubscriptionStatus{
	models.StatusPending:    {models.StatusActive, models.StatusFailed},
	models.StatusProcessing: {models.StatusActive, models.StatusFailed},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to models.SubscriptionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sources returns every status from which to is reachable, in a stable order.
func Sources(to models.SubscriptionStatus) []models.SubscriptionStatus {
	var res []models.SubscriptionStatus
	for _, from := range []models.SubscriptionStatus{models.StatusPending, models.StatusProcessing} {
		if CanTransition(from, to) {
			res = append(res, from)
		}
	}
	return res
}

// InitialStatus is the status a new subscription starts in for the given payment method.
func InitialStatus(m models.PaymentMethod) models.SubscriptionStatus {
	if m == models.PaymentCOD {
		return models.StatusPending
	}
	return models.StatusProcessing
}

// New builds a fresh subscription for plan, snapshotting its price at now.
func New(id, userID string, plan *models.MembershipPlan, method models.PaymentMethod, now time.Time) models.UserSubscription {
	return models.UserSubscription{
		ID:            id,
		UserID:        userID,
		PlanID:        plan.ID,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, plan.DurationDays),
		AmountPaid:    models.PriceFor(plan).TotalPayable,
		PaymentMethod: method,
		Status:        InitialStatus(method),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
