// Package models contains the domain structures of the membership backend:
// plans, user subscriptions, wallets and the events exchanged between services.
package models

import (
	"fmt"
	"math"
	"time"
)

// TaxRatePercent is the GST applied on top of the plan's discounted price.
const TaxRatePercent = 18

// MaxPlanPrice bounds plan prices in rupees; keep in sync with the DummyPlan tags.
const MaxPlanPrice = 1000000

// MembershipPlan is a purchasable membership tier.
type MembershipPlan struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationDays    int       `json:"duration_days"`
	OriginalPrice   int64     `json:"original_price"`
	DiscountPrice   int64     `json:"discount_price"`
	DiscountPercent int       `json:"discount_percent"`
	Savings         string    `json:"savings"`
	Benefits        []string  `json:"benefits"`
	IsBestValue     bool      `json:"is_best_value"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DummyPlan is the admin request body for creating or replacing a plan.
type DummyPlan struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	DurationDays    int      `json:"duration_days" validate:"required,gt=0"`
	OriginalPrice   int64    `json:"original_price" validate:"required,gt=0,lte=1000000"`
	DiscountPrice   int64    `json:"discount_price" validate:"required,gt=0,lte=1000000,ltefield=OriginalPrice"`
	DiscountPercent int      `json:"discount_percent" validate:"gte=0,lte=100"`
	Savings         string   `json:"savings"`
	Benefits        []string `json:"benefits" validate:"dive,required"`
	IsBestValue     bool     `json:"is_best_value"`
	IsActive        *bool    `json:"is_active"`
}

// ToPlan converts the request into a plan; the id and timestamps are left to the caller.
func (d DummyPlan) ToPlan() MembershipPlan {
	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}
	benefits := d.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	return MembershipPlan{
		Name:            d.Name,
		Description:     d.Description,
		DurationDays:    d.DurationDays,
		OriginalPrice:   d.OriginalPrice,
		DiscountPrice:   d.DiscountPrice,
		DiscountPercent: d.DiscountPercent,
		Savings:         d.Savings,
		Benefits:        benefits,
		IsBestValue:     d.IsBestValue,
		IsActive:        active,
	}
}

// EffectiveDiscountPercent returns the stored percent or derives it from the prices.
func (p *MembershipPlan) EffectiveDiscountPercent() int {
	if p.DiscountPercent != 0 || p.OriginalPrice <= 0 {
		return p.DiscountPercent
	}
	return int(math.Round((1 - float64(p.DiscountPrice)/float64(p.OriginalPrice)) * 100))
}

// SavingsText returns the stored savings label or builds the default one.
func (p *MembershipPlan) SavingsText() string {
	if p.Savings != "" {
		return p.Savings
	}
	return fmt.Sprintf("You Save ₹%d", p.OriginalPrice-p.DiscountPrice)
}

// Pricing is the price breakdown shown before checkout and snapshotted on purchase.
type Pricing struct {
	PlanPrice     int64 `json:"planPrice"`
	CouponSavings int64 `json:"couponSavings"`
	GST           int64 `json:"gst"`
	TotalPayable  int64 `json:"totalPayable"`
}

// PriceFor computes the GST and total payable for a plan.
func PriceFor(p *MembershipPlan) Pricing {
	gst := RoundPercent(p.DiscountPrice, TaxRatePercent)
	return Pricing{
		PlanPrice:     p.DiscountPrice,
		CouponSavings: p.OriginalPrice - p.DiscountPrice,
		GST:           gst,
		TotalPayable:  p.DiscountPrice + gst,
	}
}

// RoundPercent returns round(amount * percent / 100) with halves rounded up.
// Integer arithmetic keeps 25 * 18% at exactly 4.5 -> 5.
func RoundPercent(amount int64, percent int64) int64 {
	return (amount*percent + 50) / 100
}

// PlanDetails is a plan with its checkout price breakdown.
type PlanDetails struct {
	Plan    MembershipPlan `json:"plan"`
	Pricing Pricing        `json:"pricing"`
}
