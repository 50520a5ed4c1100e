package models

import "errors"

// Sentinel errors shared by the storage, service and transport layers.
// Handlers map them to stable error codes in the response package.
var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrAuthenticationFailed = errors.New("signature verification failed")
	ErrValidation           = errors.New("validation failed")
	ErrUpstream             = errors.New("payment gateway failure")
	ErrIllegalTransition    = errors.New("illegal subscription status transition")
	ErrAlreadyProcessed     = errors.New("payment already processed")
)
