// Package apperror provides structured error handling following RFC 7807 Problem Details.
// Schema-build failures and API errors use AppError; data problems in a feed are notices, never errors.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Request errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeTooLarge     = "PAYLOAD_TOO_LARGE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Schema-build errors. These indicate a bug in a schema declaration.
	CodeSchemaInvalid       = "SCHEMA_INVALID"
	CodeUnresolvedReference = "SCHEMA_UNRESOLVED_REFERENCE"
	CodeKeyConflict         = "SCHEMA_KEY_CONFLICT"
)

// AppError is the standard error type for the validator.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (table, field, target...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidInput creates an error for a feed that cannot be opened at all (400)
func NewInvalidInput(message string, cause error) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        cause,
	}
}

// NewTooLarge creates an upload size error (413)
func NewTooLarge(limit int64) *AppError {
	return &AppError{
		Code:       CodeTooLarge,
		Message:    "Uploaded feed is too large",
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Details:    map[string]any{"limit_bytes": limit},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewSchema creates a schema-build error for a malformed table declaration.
// field may be empty for table-level problems.
func NewSchema(table, field, message string) *AppError {
	e := &AppError{
		Code:       CodeSchemaInvalid,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"table": table},
	}
	if field != "" {
		e.Details["field"] = field
	}
	return e
}

// NewUnresolvedReference creates an error for a foreign key, end-range or
// currency reference that points to nothing.
func NewUnresolvedReference(table, field, kind, target string) *AppError {
	return &AppError{
		Code:       CodeUnresolvedReference,
		Message:    fmt.Sprintf("%s reference of %s.%s does not resolve: %s", kind, table, field, target),
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{
			"table":  table,
			"field":  field,
			"kind":   kind,
			"target": target,
		},
	}
}

// NewKeyConflict creates an error for an impossible key layout.
func NewKeyConflict(table, message string) *AppError {
	return &AppError{
		Code:       CodeKeyConflict,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"table": table},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsSchemaError reports whether err is any schema-build error.
func IsSchemaError(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeSchemaInvalid, CodeUnresolvedReference, CodeKeyConflict:
		return true
	}
	return false
}
