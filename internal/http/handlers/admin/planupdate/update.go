// Package planupdate lets admins replace a membership plan.
package planupdate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Service updates plans.
type Service interface {
	Update(ctx context.Context, id string, req models.DummyPlan) (*models.MembershipPlan, error)
}

// Handler serves PUT /admin/plans/{id}.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Update plan
// @Description Replaces the plan; existing subscriptions keep their snapshotted price
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param request body models.DummyPlan true "Plan"
// @Success 200 {object} response.Response{data=models.MembershipPlan}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/plans/{id} [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.planupdate"
	id := chi.URLParam(r, "id")
	log := h.log.With(slog.String("op", op), slog.String("plan_id", id))

	var req models.DummyPlan
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		response.RenderError(w, r, err)
		return
	}

	plan, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		log.Info("failed to update plan", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("plan updated")
	render.JSON(w, r, response.StatusOKWithData(plan))
}
