// Package sl holds small helpers for structured logging with slog.
package sl

import "log/slog"

// Err returns an slog.Attr with key "error" and the error text as value.
//
// Example:
//
//	log.Error("failed to debit wallet", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
