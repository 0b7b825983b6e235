package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error code
type ErrorCode string

const (
	// Source document errors
	CodeFormat ErrorCode = "FORMAT_ERROR"

	// Fetch errors
	CodeInvalidURL      ErrorCode = "INVALID_URL"
	CodeInvalidEndpoint ErrorCode = "INVALID_ENDPOINT"
	CodeTransport       ErrorCode = "TRANSPORT_ERROR"
	CodeServer          ErrorCode = "SERVER_ERROR"
	CodeDecode          ErrorCode = "DECODE_ERROR"

	// Semantically valid but empty sources
	CodeNoCatalogs ErrorCode = "NO_CATALOGS"
	CodeNoStreams  ErrorCode = "NO_STREAMS_AVAILABLE"

	// Persistence errors
	CodeStore    ErrorCode = "STORE_ERROR"
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Validation / config errors
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeConfig     ErrorCode = "CONFIG_ERROR"

	// Internal errors
	CodeInternal ErrorCode = "INTERNAL_ERROR"
	CodeUnknown  ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FormatError creates a malformed source document error
func FormatError(message string) *AppError {
	return New(CodeFormat, message)
}

// InvalidURL creates an invalid URL error
func InvalidURL(rawURL string, err error) *AppError {
	return Wrap(err, CodeInvalidURL, "invalid URL").
		WithContext("url", rawURL)
}

// InvalidEndpoint creates a malformed base URL / credentials error
func InvalidEndpoint(message string) *AppError {
	return New(CodeInvalidEndpoint, message)
}

// TransportError creates a retryable network-level error
func TransportError(message string, err error) *AppError {
	return Wrap(err, CodeTransport, message)
}

// ServerError creates a non-2xx response error carrying the status code
func ServerError(statusCode int, url string) *AppError {
	return New(CodeServer, fmt.Sprintf("server returned status %d", statusCode)).
		WithContext("status_code", statusCode).
		WithContext("url", url)
}

// DecodeError creates a schema mismatch error
func DecodeError(message string, err error) *AppError {
	return Wrap(err, CodeDecode, message)
}

// NoCatalogs creates an empty-manifest error
func NoCatalogs(addonURL string) *AppError {
	return New(CodeNoCatalogs, "manifest declares no catalogs").
		WithContext("url", addonURL)
}

// StoreError creates a persistence error
func StoreError(message string, err error) *AppError {
	return Wrap(err, CodeStore, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource, identifier string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, identifier))
}

// ConfigError creates a configuration error
func ConfigError(message string, err error) *AppError {
	if err != nil {
		return Wrap(err, CodeConfig, message)
	}
	return New(CodeConfig, message)
}

// IsRetryable determines if an error is retryable. Only transport-level
// failures are; non-2xx responses and schema mismatches are not.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeTransport
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// StatusCode extracts the HTTP status code from a server error,
// returning 0 when the error carries none.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if code, ok := appErr.Context["status_code"].(int); ok {
			return code
		}
	}
	return 0
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
