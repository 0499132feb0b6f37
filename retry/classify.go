package retry

import (
	"fmt"
	"strings"

	"github.com/BaSui01/dbflow/types"
)

// Classification buckets a driver error by how the caller should react.
type Classification int

const (
	// Unknown covers errors that match no known pattern. They are wrapped
	// as generic connection errors and never retried.
	Unknown Classification = iota
	// Transient marks infrastructure failures likely to succeed on retry:
	// refused or reset connections, timeouts, deadlocks.
	Transient
	// IntegrityViolation marks permanent constraint failures (unique,
	// foreign key, check). Retrying cannot help.
	IntegrityViolation
	// SyntaxOrPermission marks permanent statement failures: malformed SQL,
	// missing objects, or insufficient privileges.
	SyntaxOrPermission
)

// String implements fmt.Stringer.
func (c Classification) String() string {
	switch c {
	case Transient:
		return "transient"
	case IntegrityViolation:
		return "integrity_violation"
	case SyntaxOrPermission:
		return "syntax_or_permission"
	default:
		return "unknown"
	}
}

// transientMarkers are lowercase substrings of driver errors that indicate a
// failure worth retrying. DNS lookup failures count: a resolver hiccup on a
// transient network is indistinguishable from a refused connection here.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"broken pipe",
	"bad connection",
	"timeout",
	"timed out",
	"i/o timeout",
	"no such host",
	"network is unreachable",
	"temporarily unavailable",
	"too many connections",
	"deadlock",
	"serialization failure",
	"40001",
	"lock wait timeout",
}

// integrityMarkers indicate constraint violations.
var integrityMarkers = []string{
	"unique constraint",
	"duplicate key",
	"duplicate entry",
	"foreign key constraint",
	"check constraint",
	"not null constraint",
	"constraint failed",
	"constraint violation",
}

// syntaxMarkers indicate malformed statements or missing privileges.
var syntaxMarkers = []string{
	"syntax error",
	"syntax",
	"permission denied",
	"access denied",
	"permission",
	"no such table",
	"no such column",
	"unknown column",
	"unknown table",
	"undefined table",
	"undefined column",
}

// Classify inspects err and returns its Classification. Errors already
// wrapped as *types.Error keep their decided semantics: the Retryable flag
// wins over any message pattern, so a pool-exhaustion error never loops and
// a pre-classified timeout stays retryable.
func Classify(err error) Classification {
	if err == nil {
		return Unknown
	}

	if te, ok := types.AsError(err); ok {
		if te.Retryable {
			return Transient
		}
		switch te.Code {
		case types.ErrCodeIntegrityViolation:
			return IntegrityViolation
		case types.ErrCodeSyntaxOrPermission, types.ErrCodeQueryExecution:
			return SyntaxOrPermission
		default:
			return Unknown
		}
	}

	msg := strings.ToLower(err.Error())
	// 完整性与语法错误优先：它们的报文常同时包含 "timeout" 等字样
	for _, m := range integrityMarkers {
		if strings.Contains(msg, m) {
			return IntegrityViolation
		}
	}
	for _, m := range syntaxMarkers {
		if strings.Contains(msg, m) {
			return SyntaxOrPermission
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return Transient
		}
	}
	return Unknown
}

// ClassifiedError wraps a raw driver error into a *types.Error according to
// its classification, attaching the operation name, sanitized context, and
// recovery suggestions. Errors that are already classified pass through
// untouched apart from gaining the operation name and context.
func ClassifiedError(operation string, err error, context map[string]any) *types.Error {
	if err == nil {
		return nil
	}

	if te, ok := types.AsError(err); ok {
		if te.Operation == "" {
			te = te.WithOperation(operation)
		}
		return te.WithContext(context)
	}

	msg := strings.ToLower(err.Error())
	var wrapped *types.Error

	switch Classify(err) {
	case Transient:
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
			wrapped = types.NewConnectionTimeoutError(
				fmt.Sprintf("database connection error during %s", operation)).
				WithSuggestions("Database server may be under heavy load. Try again later.")
		} else {
			wrapped = types.NewConnectionError(
				fmt.Sprintf("database connection error during %s", operation)).
				WithRetryable(true)
		}

	case IntegrityViolation:
		wrapped = types.NewError(types.ErrCodeIntegrityViolation,
			fmt.Sprintf("constraint violation during %s", operation)).
			WithSuggestions(constraintHint(msg))

	case SyntaxOrPermission:
		wrapped = types.NewError(types.ErrCodeSyntaxOrPermission,
			fmt.Sprintf("statement rejected during %s", operation)).
			WithSuggestions(statementHint(msg))

	default:
		// 未知错误包装为一般连接错误
		wrapped = types.NewConnectionError(
			fmt.Sprintf("unexpected error during %s", operation))
	}

	return wrapped.WithCause(err).WithOperation(operation).WithContext(context)
}

// constraintHint derives a human-readable recovery hint from a constraint
// violation message.
func constraintHint(msg string) string {
	switch {
	case strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate"):
		return "The data you're trying to insert already exists."
	case strings.Contains(msg, "foreign key"):
		return "The referenced data doesn't exist in the parent table."
	case strings.Contains(msg, "not null"):
		return "A required column is missing a value."
	default:
		return "The statement violates database constraints."
	}
}

// statementHint derives a recovery hint for syntax and permission failures.
func statementHint(msg string) string {
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return "Contact your database administrator for appropriate permissions."
	case strings.Contains(msg, "no such table") || strings.Contains(msg, "unknown table") ||
		strings.Contains(msg, "undefined table"):
		return "Verify the table exists and the name is spelled correctly."
	case strings.Contains(msg, "column"):
		return "Verify the column exists and the name is spelled correctly."
	default:
		return "Check for syntax errors in the SQL statement."
	}
}
