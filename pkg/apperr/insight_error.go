// Package apperr defines the errors the insight service returns to API and
// worker callers. Each error carries a stable code and the HTTP status the
// error handler responds with.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"

	CodeOAuthFailed   = "OAUTH_FAILED"
	CodeStorageError  = "STORAGE_ERROR"
	CodeExternalError = "EXTERNAL_ERROR"
	CodeTimeout       = "TIMEOUT"

	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError is an error with a code, a client-facing message and an optional
// cause. Only Code, Message and Details reach the response body.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key to the response details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithError attaches the underlying cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// Request errors

func BadRequest(message string) *AppError {
	return newError(CodeBadRequest, http.StatusBadRequest, message)
}

// ValidationFailed reports settings that failed domain validation.
func ValidationFailed(err error) *AppError {
	return newError(CodeValidationFailed, http.StatusBadRequest, err.Error()).WithError(err)
}

// InvalidInput reports a bad query or body field.
func InvalidInput(field, reason string) *AppError {
	return newError(CodeInvalidInput, http.StatusBadRequest,
		fmt.Sprintf("invalid input for '%s': %s", field, reason)).
		WithDetail("field", field)
}

func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Upstream errors

// OAuthFailed reports a provider whose credentials could not be set up.
func OAuthFailed(provider string, err error) *AppError {
	return newError(CodeOAuthFailed, http.StatusBadGateway, "OAuth failed for "+provider).
		WithDetail("provider", provider).
		WithError(err)
}

// ExternalError reports a message source that failed to deliver a batch.
func ExternalError(source string, err error) *AppError {
	return newError(CodeExternalError, http.StatusBadGateway, "mail source error: "+source).
		WithDetail("source", source).
		WithError(err)
}

// Timeout reports an operation that ran past its deadline.
func Timeout(operation string, err error) *AppError {
	return newError(CodeTimeout, http.StatusGatewayTimeout, "operation timed out: "+operation).
		WithError(err)
}

func StorageError(operation string, err error) *AppError {
	return newError(CodeStorageError, http.StatusInternalServerError, "storage error: "+operation).
		WithError(err)
}

// Server errors

func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return newError(CodeInternalError, http.StatusInternalServerError, message)
}

func ConfigError(message string) *AppError {
	return newError(CodeConfigError, http.StatusInternalServerError, message)
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternalError when there is none. A nil error has no code.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}
