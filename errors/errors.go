package errors

import (
	"fmt"
	"maps"
	"time"
)

// AppError is the error type every layer hands back to the API. Code drives
// status, retryability and kind; Cause is logged but never serialized.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WithStatus overrides the HTTP status registered for the code.
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// Permanent marks the error as not worth retrying regardless of its code.
func (e *AppError) Permanent() *AppError {
	e.Retryable = false
	return e
}

// New builds an error whose status and retryability come from code.
func New(code ErrorCode, message string) *AppError {
	s := specOf(code)
	return &AppError{Code: code, Message: message, HTTPStatus: s.status, Retryable: s.retryable}
}

// Wrap returns err as an AppError. AppErrors anywhere in the chain are
// returned as is; anything else becomes an internal error with err as cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service)).
		WithDetail("service", service)
}

func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The request took too long. Please try again.").
		WithDetail("operation", operation)
}

// RateLimited tells the caller how long to back off, in whole seconds.
func RateLimited(retryAfter time.Duration) *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please slow down.").
		WithDetail("retry_after_seconds", int(retryAfter.Seconds()))
}

// NotFound reports a missing resource. An empty id is left out of the details.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource)).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason)
}

// InvalidInput reports a rejected field. field may be empty when the whole
// payload is at fault.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason).WithDetails(nil)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func Unauthorized(reason string) *AppError {
	return New(ErrCodeUnauthorized, orDefault(reason, "Authentication required."))
}

func Forbidden(reason string) *AppError {
	return New(ErrCodeForbidden, orDefault(reason, "You don't have permission to perform this action."))
}

func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "Invalid authentication token. Please log in again.")
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").
		WithCause(cause)
}

func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.").WithCause(cause)
}

func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService, fmt.Sprintf("The %s service encountered an error. Please try again.", service)).
		WithDetail("service", service).
		WithCause(cause)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
