// Package response renders the JSON envelope shared by all membership API
// handlers and maps domain errors to HTTP statuses and stable error codes.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Response is the standard body: {"status":"OK","data":...} or
// {"status":"Error","error":"...","code":"..."}.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse documents error bodies in swagger annotations.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Code   string `json:"code,omitempty" example:"VALIDATION_ERROR"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Stable error codes.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUpstream             = "UPSTREAM_FAILURE"
	CodeIllegalTransition    = "ILLEGAL_TRANSITION"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeRateLimited          = "RATE_LIMITED"
	CodeBadRequest           = "BAD_REQUEST"
	CodeInternal             = "INTERNAL"
)

// StatusOKWithData wraps data in a successful Response.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error builds an error Response with a code.
func Error(code, msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
		Code:   code,
	}
}

// FromError maps err to an HTTP status and a client-safe Response.
// Unknown errors are reported as INTERNAL without their text.
func FromError(err error) (int, Response) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, Error(CodeNotFound, "not found")
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired, Error(CodeInsufficientFunds, "Insufficient wallet balance")
	case errors.Is(err, models.ErrAuthenticationFailed):
		return http.StatusForbidden, Error(CodeAuthenticationFailed, "Signature verification failed")
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity, Error(CodeValidation, validationMessage(err))
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, Error(CodeUpstream, "payment gateway unavailable, please retry")
	case errors.Is(err, models.ErrIllegalTransition):
		return http.StatusConflict, Error(CodeIllegalTransition, "subscription cannot change to the requested status")
	default:
		return http.StatusInternalServerError, Error(CodeInternal, "internal error")
	}
}

// RenderError writes the response FromError produces for err.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// validationMessage returns the part of the error chain after the sentinel text.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, models.ErrValidation.Error()+": "); i >= 0 {
		return msg[i+len(models.ErrValidation.Error())+2:]
	}
	return models.ErrValidation.Error()
}

// ValidationError renders validator failures as one readable message.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "lte", "ltefield":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must not exceed %s", err.Field(), err.Param()))
		case "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Error(CodeValidation, strings.Join(errsMsgs, ", "))
}
