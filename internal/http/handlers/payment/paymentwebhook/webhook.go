// Package paymentwebhook receives Razorpay webhook deliveries.
package paymentwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/paymentprovider"
	"github.com/magabrotheeeer/dynasty-membership/internal/services/reconciler"
)

const maxBodyBytes = 1 << 20

// Service verifies and applies a delivery.
type Service interface {
	Handle(ctx context.Context, body []byte, signature string) (reconciler.Outcome, error)
}

// Ack is the acknowledgment body.
type Ack struct {
	Status string `json:"status" example:"ok"`
}

// Handler serves POST /webhook/razorpay.
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
// @Summary Razorpay webhook
// @Description Verifies X-Razorpay-Signature over the raw body; every verified delivery is acknowledged
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 hex of the body"
// @Success 200 {object} Ack
// @Failure 403 {object} response.ErrorResponse
// @Router /webhook/razorpay [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeBadRequest, "invalid request body"))
		return
	}

	outcome, err := h.service.Handle(r.Context(), body, r.Header.Get(paymentprovider.SignatureHeader))
	if err != nil {
		if errors.Is(err, models.ErrAuthenticationFailed) {
			response.RenderError(w, r, err)
			return
		}
		log.Error("webhook handling failed", sl.Err(err))
	}
	log.Info("webhook processed", slog.String("outcome", string(outcome)))
	render.JSON(w, r, Ack{Status: "ok"})
}
