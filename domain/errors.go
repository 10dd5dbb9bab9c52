package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeMissingEventType ErrorCode = "MISSING_EVENT_TYPE"
	ErrCodeInvalidEventType ErrorCode = "INVALID_EVENT_TYPE"
	ErrCodeInvalid          ErrorCode = "INVALID_PAYLOAD"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeUnavailable      ErrorCode = "UNAVAILABLE"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrMissingEventType     = NewError(ErrCodeMissingEventType, "missing event type")
	ErrInvalidEventType     = NewError(ErrCodeInvalidEventType, "invalid event type")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
	ErrSnapshotNotFound     = NewError(ErrCodeNotFound, "stats snapshot not found")
	ErrUnauthorized         = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrRateLimited          = NewError(ErrCodeRateLimited, "too many requests")
	ErrBackendNotConfigured = NewError(ErrCodeUnavailable, "analytics backend not configured")
	ErrBackendMisconfigured = NewError(ErrCodeUnavailable, "analytics backend credentials malformed")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the classification of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}
