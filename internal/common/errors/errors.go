// Package errors provides standardized error handling for the HTTP API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeNoSelectorProvided      ErrorCode = "NO_SELECTOR_PROVIDED"
	ErrCodeConversionIndeterminate ErrorCode = "CONVERSION_TYPE_INDETERMINATE"
	ErrCodeConversionFailed        ErrorCode = "CONVERSION_FAILED"
	ErrCodeCacheOperationFailed    ErrorCode = "CACHE_OPERATION_FAILED"
	ErrCodeNotFound                ErrorCode = "NOT_FOUND"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

const (
	MsgNoSelectorProvided      = "No query or range provided."
	MsgConversionIndeterminate = "Could not determine the type of conversion to perform."
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	FieldErrors []FieldError           `json:"errors,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches on error code so sentinel comparisons survive wrapping.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError carries every field failure of a rejected request.
func NewValidationFailedError(fieldErrors []FieldError) *StandardError {
	messages := ""
	for i, fe := range fieldErrors {
		if i > 0 {
			messages += "; "
		}
		messages += fe.Message
	}
	return &StandardError{
		Code:        ErrCodeValidationFailed,
		Message:     messages,
		FieldErrors: fieldErrors,
		Timestamp:   time.Now().UTC(),
	}
}

// NewNoSelectorProvidedError is returned when neither query nor range is set.
func NewNoSelectorProvidedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoSelectorProvided,
		Message:   MsgNoSelectorProvided,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversionIndeterminateError signals a request shape that validation
// should have rejected.
func NewConversionIndeterminateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversionIndeterminate,
		Message:   MsgConversionIndeterminate,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversionFailedError wraps a failure from the conversion path.
func NewConversionFailedError(cacheKey string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversionFailed,
		Message:   "Conversion failed",
		Details:   fmt.Sprintf("cacheKey: %s, error: %s", cacheKey, err.Error()),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCacheOperationFailedError wraps a cache store failure.
func NewCacheOperationFailedError(operation, cacheKey string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheOperationFailed,
		Message:   "Cache operation failed",
		Details:   fmt.Sprintf("operation: %s, cacheKey: %s, error: %s", operation, cacheKey, err.Error()),
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotFoundError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("Cannot handle %s", path),
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Error Mapping
// ==========================

var httpStatusMapping = map[ErrorCode]int{
	ErrCodeValidationFailed:        http.StatusBadRequest,
	ErrCodeNoSelectorProvided:      http.StatusBadRequest,
	ErrCodeNotFound:                http.StatusNotFound,
	ErrCodeConversionIndeterminate: http.StatusInternalServerError,
	ErrCodeConversionFailed:        http.StatusInternalServerError,
	ErrCodeCacheOperationFailed:    http.StatusInternalServerError,
	ErrCodeInternal:                http.StatusInternalServerError,
}

// GetHTTPStatus returns the response status for an error code.
func GetHTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetErrorCategory returns "client" for caller-caused errors, "server" otherwise.
func GetErrorCategory(code ErrorCode) string {
	if GetHTTPStatus(code) < http.StatusInternalServerError {
		return "client"
	}
	return "server"
}

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always yields a StandardError, wrapping unknown errors as internal.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}
