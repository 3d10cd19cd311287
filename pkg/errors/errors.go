package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError describes a single invalid field inside a request payload.
type FieldError struct {
	Row     *int   `json:"row,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Status    int          `json:"status"`
	Retryable bool         `json:"retryable,omitempty"`
	Details   []FieldError `json:"details,omitempty"`
	Err       error        `json:"-"`
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

// Is matches errors sharing the same code so callers can use errors.Is against the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
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
	ErrNotFound         = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden        = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized     = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict         = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation       = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal         = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrInvalidWeights   = New("INVALID_WEIGHTS", http.StatusBadRequest, "invalid component weights")
	ErrStoreUnavailable = &Error{Code: "STORE_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "results store unavailable, retry later", Retryable: true}
	ErrPartialBatch     = &Error{Code: "PARTIAL_BATCH", Status: http.StatusServiceUnavailable, Message: "batch partially saved, retry the failed chunk", Retryable: true}
	ErrCacheMiss        = New("CACHE_MISS", http.StatusNotFound, "cache miss")
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
	clone.Details = nil
	return &clone
}

// WithDetails returns a copy of err carrying field level details.
func WithDetails(err *Error, message string, details []FieldError) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	clone.Details = append([]FieldError(nil), details...)
	return clone
}

// WithCause returns a copy of err wrapping cause.
func WithCause(err *Error, cause error, message string) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	clone.Err = cause
	return clone
}

// Redacted returns the representation that is safe to show to API consumers.
// Server-side failures keep their code but lose any message that could leak internals.
func Redacted(err *Error) *Error {
	if err == nil {
		return nil
	}
	if err.Status < http.StatusInternalServerError {
		return err
	}
	safe := &Error{Code: err.Code, Status: err.Status, Retryable: err.Retryable, Details: err.Details}
	switch err.Code {
	case ErrStoreUnavailable.Code, ErrPartialBatch.Code:
		safe.Message = err.Message
	default:
		safe.Message = ErrInternal.Message
	}
	return safe
}
