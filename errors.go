package beep

import (
	"errors"
	"fmt"
	"time"
)

// Error represents an API error with a machine-readable code
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RetryAfter time.Duration          `json:"-"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying transport error, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Common error codes
const (
	ErrCodeAuthentication    = "authentication_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeNetwork           = "network_error"
	ErrCodePayment           = "payment_error"
	ErrCodeInsufficientFunds = "insufficient_funds"
	ErrCodeNotFound          = "not_found"
	ErrCodeRateLimit         = "rate_limited"
	ErrCodeTimeout           = "timeout"
	ErrCodeWallet            = "wallet_error"
)

// NewError creates a new typed error
func NewError(code, message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapError creates a typed error with the original cause attached
func WrapError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// CodeOf returns the error code, or empty string for untyped errors
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsAuthentication reports whether err is a credential error
func IsAuthentication(err error) bool { return hasCode(err, ErrCodeAuthentication) }

// IsValidation reports whether err is a request validation error
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsRateLimit reports whether err is a rate-limit error
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsInsufficientFunds reports whether err indicates missing on-chain balance
func IsInsufficientFunds(err error) bool { return hasCode(err, ErrCodeInsufficientFunds) }

// IsTimeout reports whether err is a client-side timeout
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsWallet reports whether err is a wallet capability error
func IsWallet(err error) bool { return hasCode(err, ErrCodeWallet) }
