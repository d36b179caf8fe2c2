package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so callers can compare against the predefined values.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials   = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount      = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound             = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden            = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized         = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict             = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed   = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation           = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal             = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrAttendanceExpired    = New("ATTENDANCE_EXPIRED", http.StatusGone, "attendance window has closed")
	ErrDuplicateSubmission  = New("DUPLICATE_SUBMISSION", http.StatusConflict, "attendance already submitted")
	ErrTooManyRequests      = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrNoRecipients         = New("NO_RECIPIENTS", http.StatusBadRequest, "no valid recipient emails")
	ErrCacheMiss            = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrEmailDeliveryFailure = New("EMAIL_DELIVERY_FAILED", http.StatusBadGateway, "email delivery failed")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Public strips internal detail from server-side failures before they reach a client.
func Public(err *Error) *Error {
	if err == nil {
		return nil
	}
	if err.Status >= http.StatusInternalServerError && err.Code == ErrInternal.Code {
		return &Error{Code: ErrInternal.Code, Status: ErrInternal.Status, Message: ErrInternal.Message}
	}
	return err
}
