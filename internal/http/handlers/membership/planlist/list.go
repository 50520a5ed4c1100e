// Package planlist serves the membership renewal screen with the active plans.
package planlist

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Service lists active plans.
type Service interface {
	ListActive(ctx context.Context) ([]models.MembershipPlan, error)
}

// PlanView is one plan card.
type PlanView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Duration        string `json:"duration"`
	OriginalPrice   int64  `json:"originalPrice"`
	DiscountPrice   int64  `json:"discountPrice"`
	DiscountPercent int    `json:"discountPercent"`
	Savings         string `json:"savings"`
	IsBestValue     bool   `json:"isBestValue"`
}

// ListResponse is the renewal screen payload.
type ListResponse struct {
	Banner         string     `json:"banner"`
	Subtitle       string     `json:"subtitle"`
	ExclusiveOffer string     `json:"exclusiveOffer"`
	Benefits       []string   `json:"benefits"`
	Plans          []PlanView `json:"plans"`
}

var screenBenefits = []string{
	"Milk & Coconut: Up to 40% OFF",
	"Other Items: Up to 80% OFF",
	"Ad-Free Experience",
}

// Handler serves GET /plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary List membership plans
// @Description Active plans, longest duration first, with the renewal banner
// @Tags Membership
// @Produce json
// @Success 200 {object} response.Response{data=ListResponse}
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /plans [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.planlist"
	log := h.log.With(slog.String("op", op))

	plans, err := h.service.ListActive(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	views := make([]PlanView, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		views = append(views, PlanView{
			ID:              p.ID,
			Name:            p.Name,
			Duration:        fmt.Sprintf("%d Days Plan", p.DurationDays),
			OriginalPrice:   p.OriginalPrice,
			DiscountPrice:   p.DiscountPrice,
			DiscountPercent: p.EffectiveDiscountPercent(),
			Savings:         p.SavingsText(),
			IsBestValue:     p.IsBestValue,
		})
	}

	render.JSON(w, r, response.StatusOKWithData(ListResponse{
		Banner:         "PREMIUM RENEWAL",
		Subtitle:       "Your exclusive benefits are about to end. Don't miss out!",
		ExclusiveOffer: "KEEP UP TO 80% OFF",
		Benefits:       screenBenefits,
		Plans:          views,
	}))
}
