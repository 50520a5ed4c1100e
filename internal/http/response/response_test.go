package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{models.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("op: %w", models.ErrInsufficientFunds), http.StatusPaymentRequired, CodeInsufficientFunds},
		{models.ErrAuthenticationFailed, http.StatusForbidden, CodeAuthenticationFailed},
		{fmt.Errorf("op: %w: amount must be positive", models.ErrValidation), http.StatusUnprocessableEntity, CodeValidation},
		{fmt.Errorf("%w: timeout", models.ErrUpstream), http.StatusBadGateway, CodeUpstream},
		{models.ErrIllegalTransition, http.StatusConflict, CodeIllegalTransition},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, body := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, StatusError, body.Status)
		})
	}
}

func TestFromError_HidesInternalText(t *testing.T) {
	_, body := FromError(errors.New("password=secret"))
	assert.Equal(t, "internal error", body.Error)
}

func TestFromError_ValidationMessage(t *testing.T) {
	_, body := FromError(fmt.Errorf("services.wallet.Credit: %w: amount must be positive", models.ErrValidation))
	assert.Equal(t, "amount must be positive", body.Error)

	_, body = FromError(models.ErrValidation)
	assert.Equal(t, "validation failed", body.Error)
}

func TestRenderError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	RenderError(rr, req, models.ErrInsufficientFunds)

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.JSONEq(t, `{"status":"Error","error":"Insufficient wallet balance","code":"INSUFFICIENT_FUNDS"}`, rr.Body.String())
}

func TestValidationError(t *testing.T) {
	type req struct {
		PlanID string `validate:"required,uuid"`
		Method string `validate:"required,oneof=COD Wallet"`
	}
	err := validator.New().Struct(req{PlanID: "abc", Method: "Cash"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	resp := ValidationError(verrs)
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "field PlanID must be a uuid")
	assert.Contains(t, resp.Error, "field Method must be one of [COD Wallet]")
}
