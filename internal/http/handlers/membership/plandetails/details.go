// Package plandetails serves the checkout view of one plan.
package plandetails

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Service returns a plan with its price breakdown.
type Service interface {
	Details(ctx context.Context, id string) (*models.PlanDetails, error)
}

// DetailsResponse is the checkout payload.
type DetailsResponse struct {
	Plan struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Validity string   `json:"validity"`
		Benefits []string `json:"benefits"`
	} `json:"plan"`
	Pricing models.Pricing `json:"pricing"`
}

// Handler serves GET /plan/{id}.
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
// @Summary Plan details
// @Description Plan validity, benefits and the GST price breakdown
// @Tags Membership
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Response{data=DetailsResponse}
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /plan/{id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.plandetails"
	id := chi.URLParam(r, "id")
	log := h.log.With(slog.String("op", op), slog.String("plan_id", id))

	details, err := h.service.Details(r.Context(), id)
	if err != nil {
		log.Info("failed to load plan", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	var resp DetailsResponse
	resp.Plan.ID = details.Plan.ID
	resp.Plan.Name = details.Plan.Name
	resp.Plan.Validity = fmt.Sprintf("%d Days", details.Plan.DurationDays)
	resp.Plan.Benefits = details.Plan.Benefits
	resp.Pricing = details.Pricing
	render.JSON(w, r, response.StatusOKWithData(resp))
}
