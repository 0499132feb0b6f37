package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrCodeConnection, "connect failed").
		WithCause(root).
		WithRetryable(true).
		WithOperation("connect").
		WithAttempts(4)

	if GetErrorCode(err) != ErrCodeConnection {
		t.Fatalf("expected code %s, got %s", ErrCodeConnection, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if err.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", err.Attempts)
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_AsErrorThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrCodePoolExhausted, "pool is full")
	wrapped := errors.Join(errors.New("outer"), inner)

	e, ok := AsError(wrapped)
	if !ok {
		t.Fatalf("expected AsError to find *Error through wrapping")
	}
	if e.Code != ErrCodePoolExhausted {
		t.Fatalf("expected code %s, got %s", ErrCodePoolExhausted, e.Code)
	}
	if !IsCode(wrapped, ErrCodePoolExhausted) {
		t.Fatalf("expected IsCode to match through wrapping")
	}
}

func TestSanitizeContext_MasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"host":          "db.internal",
		"password":      "hunter2",
		"api_token":     "tok-123",
		"ssl_key_path":  "/etc/ssl/client.key",
		"client_secret": "sssh",
		"database":      "analytics",
	}
	out := SanitizeContext(in)

	for _, k := range []string{"password", "api_token", "ssl_key_path", "client_secret"} {
		if out[k] != "***" {
			t.Fatalf("expected %q masked, got %v", k, out[k])
		}
	}
	if out["host"] != "db.internal" || out["database"] != "analytics" {
		t.Fatalf("expected non-sensitive keys preserved, got %v", out)
	}
	// 输入不被修改
	if in["password"] != "hunter2" {
		t.Fatalf("expected input map untouched")
	}
}

func TestErrorConstructors_CarrySuggestions(t *testing.T) {
	t.Parallel()

	if len(NewConnectionError("boom").Suggestions) == 0 {
		t.Fatalf("connection error should suggest recovery steps")
	}
	if len(NewConnectionTimeoutError("slow").Suggestions) == 0 {
		t.Fatalf("timeout error should suggest recovery steps")
	}
	if !NewConnectionTimeoutError("slow").Retryable {
		t.Fatalf("timeout errors are transient")
	}
	if NewQueryExecutionError("bad sql", "Check your SQL syntax").Retryable {
		t.Fatalf("query errors are permanent")
	}
	if NewDecryptionError("tag mismatch").Retryable {
		t.Fatalf("decryption errors are permanent")
	}
}

func TestError_WithContextSanitizes(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeQueryExecution, "insert failed").WithContext(map[string]any{
		"table":    "users",
		"password": "hunter2",
	})
	if err.Context["password"] != "***" {
		t.Fatalf("expected password masked in error context, got %v", err.Context["password"])
	}
	if err.Context["table"] != "users" {
		t.Fatalf("expected table preserved, got %v", err.Context["table"])
	}
}
