package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unified error code across the library.
type ErrorCode string

// Configuration error codes
const (
	ErrCodeConfiguration       ErrorCode = "CONFIGURATION"
	ErrCodeUnsupportedDBType   ErrorCode = "UNSUPPORTED_DB_TYPE"
	ErrCodeCredentialsNotFound ErrorCode = "CREDENTIALS_NOT_FOUND"
)

// Connection error codes
const (
	ErrCodeConnection        ErrorCode = "CONNECTION"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
	ErrCodePoolExhausted     ErrorCode = "POOL_EXHAUSTED"
	ErrCodeNotConnected      ErrorCode = "NOT_CONNECTED"
)

// Query execution error codes
const (
	ErrCodeQueryExecution     ErrorCode = "QUERY_EXECUTION"
	ErrCodeIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"
	ErrCodeSyntaxOrPermission ErrorCode = "SYNTAX_OR_PERMISSION"
)

// Credential material error codes
const (
	ErrCodeDecryption ErrorCode = "DECRYPTION"
)

// Error represents a structured error with code, message, and metadata.
// Context is sanitized on attachment, so an Error never carries credential
// material across the library boundary.
type Error struct {
	Code        ErrorCode      `json:"code"`
	Message     string         `json:"message"`
	Retryable   bool           `json:"retryable"`
	Operation   string         `json:"operation,omitempty"`
	Attempts    int            `json:"attempts,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Cause       error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithOperation records the operation that produced the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithAttempts records how many attempts were made before giving up.
func (e *Error) WithAttempts(n int) *Error {
	e.Attempts = n
	return e
}

// WithSuggestions attaches recovery suggestions.
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithContext attaches sanitized diagnostic context. Values under keys that
// look secret-bearing are masked before storage.
func (e *Error) WithContext(ctx map[string]any) *Error {
	if len(ctx) == 0 {
		return e
	}
	if e.Context == nil {
		e.Context = make(map[string]any, len(ctx))
	}
	for k, v := range SanitizeContext(ctx) {
		e.Context[k] = v
	}
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError unwraps err into a *Error when possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// sensitiveKeyMarkers are substrings that mark a context key as
// secret-bearing. Matching is case-insensitive.
var sensitiveKeyMarkers = []string{"password", "token", "key", "secret"}

// IsSensitiveKey reports whether a context key should have its value masked.
func IsSensitiveKey(k string) bool {
	lower := strings.ToLower(k)
	for _, marker := range sensitiveKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SanitizeContext returns a copy of ctx with values of sensitive keys
// replaced by "***". The input map is never mutated.
func SanitizeContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if IsSensitiveKey(k) {
			out[k] = maskedValue
			continue
		}
		out[k] = v
	}
	return out
}

// maskedValue replaces secret material in logs, errors, and JSON output.
const maskedValue = "***"

// Common error constructors

// NewConfigurationError reports invalid or incomplete connection
// configuration. Configuration errors are never retryable.
func NewConfigurationError(message string) *Error {
	return NewError(ErrCodeConfiguration, message).
		WithSuggestions("Verify the connection configuration fields")
}

// NewConnectionError reports a failure to reach or authenticate against the
// database server.
func NewConnectionError(message string) *Error {
	return NewError(ErrCodeConnection, message).
		WithSuggestions(
			"Check if the database server is running",
			"Verify network connectivity",
			"Check connection credentials",
		)
}

// NewConnectionTimeoutError reports a timed-out connection attempt.
func NewConnectionTimeoutError(message string) *Error {
	return NewError(ErrCodeConnectionTimeout, message).
		WithRetryable(true).
		WithSuggestions(
			"Check database server performance",
			"Consider increasing the timeout value",
			"Verify network connectivity",
		)
}

// NewPoolExhaustedError reports that the connection pool is at capacity.
// Admission is fail-fast: callers provide their own backpressure.
func NewPoolExhaustedError(message string) *Error {
	return NewError(ErrCodePoolExhausted, message).
		WithSuggestions(
			"Increase pool_size or max_overflow",
			"Dispose idle connections before opening new ones",
		)
}

// NewQueryExecutionError reports a permanent statement failure with a
// human-readable hint derived from the driver message.
func NewQueryExecutionError(message string, hint string) *Error {
	e := NewError(ErrCodeQueryExecution, message)
	if hint != "" {
		e = e.WithSuggestions(hint)
	}
	return e
}

// NewCredentialsNotFoundError reports an absent secret and names the source
// that was consulted, for operability.
func NewCredentialsNotFoundError(message string) *Error {
	return NewError(ErrCodeCredentialsNotFound, message).
		WithSuggestions("Verify the credential source exists and is readable")
}

// NewDecryptionError reports an authentication-tag mismatch on an encrypted
// credential blob. Never retryable.
func NewDecryptionError(message string) *Error {
	return NewError(ErrCodeDecryption, message).
		WithSuggestions("Verify the encryption key material matches the blob")
}

// NewNotConnectedError reports an operation that requires a connected facade.
func NewNotConnectedError(message string) *Error {
	return NewError(ErrCodeNotConnected, message).
		WithSuggestions("Call Connect before schema introspection")
}
