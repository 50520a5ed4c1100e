// Package walletadjust lets admins credit or debit a customer's wallet by hand.
package walletadjust

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Service changes wallet balances.
type Service interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error)
}

// AdjustResponse carries the balance after the adjustment.
type AdjustResponse struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance" swaggertype:"string"`
}

// Handler serves POST /admin/wallet/{userId}/adjust.
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
// @Summary Adjust wallet
// @Description Credits or debits a customer's wallet; a debit never takes the balance below zero
// @Tags Admin
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body models.WalletAdjustRequest true "Adjustment"
// @Success 200 {object} response.Response{data=AdjustResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 402 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/wallet/{userId}/adjust [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.walletadjust"
	userID := chi.URLParam(r, "userId")
	adminID, _ := middlewarectx.UserIDFrom(r.Context())
	log := h.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("admin_id", adminID))

	if _, err := uuid.Parse(userID); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(response.CodeValidation, "field userId must be a uuid"))
		return
	}

	var req models.WalletAdjustRequest
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

	var (
		balance decimal.Decimal
		err     error
	)
	if req.Type == models.TransactionCredit {
		balance, err = h.service.Credit(r.Context(), userID, req.Amount, req.Description)
	} else {
		balance, err = h.service.Debit(r.Context(), userID, req.Amount, req.Description)
	}
	if err != nil {
		log.Info("wallet adjustment failed", slog.String("type", string(req.Type)), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("wallet adjusted", slog.String("type", string(req.Type)), slog.String("amount", req.Amount.StringFixed(2)))
	render.JSON(w, r, response.StatusOKWithData(AdjustResponse{UserID: userID, Balance: balance}))
}
