// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, so a wrapped error still matches its base.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrInvalidSeries  = &Error{Code: "INVALID_SERIES", Message: "price series is malformed"}
	ErrProviderFailed = &Error{Code: "PROVIDER_FAILED", Message: "price provider failed"}

	// Simulation errors
	ErrDegeneratePrice   = &Error{Code: "DEGENERATE_PRICE", Message: "price must be positive to trade"}
	ErrInvalidTransition = &Error{Code: "INVALID_TRANSITION", Message: "position state does not allow this trade"}
	ErrComputation       = &Error{Code: "COMPUTATION_ERROR", Message: "result computation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Access errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid api key"}

	// Storage errors
	ErrNotFound      = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "archive operation failed"}
)
