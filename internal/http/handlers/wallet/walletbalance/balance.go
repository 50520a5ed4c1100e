// Package walletbalance returns the caller's wallet balance and history.
package walletbalance

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Service reads wallets.
type Service interface {
	GetBalance(ctx context.Context, userID string) (*models.Wallet, error)
}

// BalanceResponse is the wallet screen payload.
type BalanceResponse struct {
	Balance      decimal.Decimal            `json:"balance" swaggertype:"string"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

// Handler serves GET /wallet/balance.
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
// @Summary Wallet balance
// @Description Current balance and transactions, newest first; zero when no wallet exists yet
// @Tags Wallet
// @Produce json
// @Success 200 {object} response.Response{data=BalanceResponse}
// @Failure 401 {object} response.ErrorResponse
// @Router /wallet/balance [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.wallet.balance"
	log := h.log.With(slog.String("op", op))

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.CodeUnauthorized, "unauthorized"))
		return
	}

	wallet, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		log.Error("failed to load wallet", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(BalanceResponse{
		Balance:      wallet.Balance,
		Transactions: wallet.Transactions,
	}))
}
