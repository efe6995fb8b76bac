package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeConflictRetry    ErrorCode = "CONFLICT_RETRYABLE"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodePreconditionFail ErrorCode = "PRECONDITION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal    ErrorCode = "INTERNAL_ERROR"
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodeStorage     ErrorCode = "STORAGE_ERROR"
)

// AppError is the standard application error carrying a code, message and HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails attaches structured details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithCause attaches an underlying cause
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func newError(code ErrorCode, status int, format string, args ...any) *AppError {
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
	}
}

// NewValidation creates a validation error
func NewValidation(format string, args ...any) *AppError {
	return newError(CodeValidation, http.StatusBadRequest, format, args...)
}

// NewNotFound creates a not-found error
func NewNotFound(format string, args ...any) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, format, args...)
}

// NewAlreadyExists creates an already-exists error
func NewAlreadyExists(format string, args ...any) *AppError {
	return newError(CodeAlreadyExists, http.StatusConflict, format, args...)
}

// NewConflict creates a conflict error
func NewConflict(format string, args ...any) *AppError {
	return newError(CodeConflict, http.StatusConflict, format, args...)
}

// NewConflictRetryable creates a retryable conflict error, used when
// optimistic concurrency retries are exhausted and the caller may retry
func NewConflictRetryable(format string, args ...any) *AppError {
	return newError(CodeConflictRetry, http.StatusConflict, format, args...)
}

// NewInternal creates an internal server error
func NewInternal(format string, args ...any) *AppError {
	return newError(CodeInternal, http.StatusInternalServerError, format, args...)
}

// NewStorage creates a storage-layer error
func NewStorage(format string, args ...any) *AppError {
	return newError(CodeStorage, http.StatusInternalServerError, format, args...)
}

// NewUnavailable creates a service-unavailable error
func NewUnavailable(format string, args ...any) *AppError {
	return newError(CodeUnavailable, http.StatusServiceUnavailable, format, args...)
}

// NewTimeout creates a timeout error
func NewTimeout(format string, args ...any) *AppError {
	return newError(CodeTimeout, http.StatusGatewayTimeout, format, args...)
}

// AsAppError extracts an AppError from an error chain, or nil
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	if appErr := AsAppError(err); appErr != nil {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsConflict reports whether err is a conflict error of any kind
func IsConflict(err error) bool {
	if appErr := AsAppError(err); appErr != nil {
		return appErr.Code == CodeConflict || appErr.Code == CodeConflictRetry || appErr.Code == CodeAlreadyExists
	}
	return false
}

// IsRetryable reports whether the operation may be retried by the caller
func IsRetryable(err error) bool {
	if appErr := AsAppError(err); appErr != nil {
		return appErr.Code == CodeConflictRetry || appErr.Code == CodeUnavailable || appErr.Code == CodeTimeout
	}
	return false
}
