package retry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/dbflow/types"
)

func TestClassify_ByMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want Classification
	}{
		{"dial tcp 10.0.0.1:5432: connect: connection refused", Transient},
		{"read tcp: connection reset by peer", Transient},
		{"write: broken pipe", Transient},
		{"driver: bad connection", Transient},
		{"context deadline exceeded (i/o timeout)", Transient},
		{"dial tcp: lookup nonexistent-host: no such host", Transient},
		{"pq: deadlock detected", Transient},
		{"ERROR: could not serialize access (SQLSTATE 40001)", Transient},
		{"Error 1205: Lock wait timeout exceeded", Transient},
		{"connect: network is unreachable", Transient},
		{"resource temporarily unavailable", Transient},

		{`duplicate key value violates unique constraint "users_email_key"`, IntegrityViolation},
		{"Error 1062: Duplicate entry 'x' for key 'PRIMARY'", IntegrityViolation},
		{"FOREIGN KEY constraint failed", IntegrityViolation},
		{"NOT NULL constraint failed: users.name", IntegrityViolation},

		{`pq: syntax error at or near "SELEC"`, SyntaxOrPermission},
		{"ERROR: permission denied for table users", SyntaxOrPermission},
		{"Error 1045: Access denied for user 'app'", SyntaxOrPermission},
		{"no such table: missing_table", SyntaxOrPermission},
		{"Unknown column 'bogus' in 'field list'", SyntaxOrPermission},

		{"something entirely novel went wrong", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(errors.New(tt.msg)), tt.msg)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Equal(t, Unknown, Classify(nil))
}

// 已分类的 *types.Error 保留其既定语义，不再按报文重新归类
func TestClassify_TypedErrors(t *testing.T) {
	// Retryable 标记胜过任何报文模式
	retryable := types.NewConnectionTimeoutError("slow probe")
	assert.Equal(t, Transient, Classify(retryable))

	// 池耗尽是快速失败：永不进入重试循环
	exhausted := types.NewPoolExhaustedError("pool is full")
	assert.Equal(t, Unknown, Classify(exhausted))

	// 即便报文里带着 "timeout" 字样，不可重试标记也说了算
	cfg := types.NewConfigurationError("connect timeout must be positive")
	assert.Equal(t, Unknown, Classify(cfg))

	integrity := types.NewError(types.ErrCodeIntegrityViolation, "dup")
	assert.Equal(t, IntegrityViolation, Classify(integrity))

	syntax := types.NewError(types.ErrCodeSyntaxOrPermission, "bad sql")
	assert.Equal(t, SyntaxOrPermission, Classify(syntax))

	// 包装链中的 *types.Error 也能被识破
	wrapped := fmt.Errorf("outer: %w", types.NewPoolExhaustedError("full"))
	assert.Equal(t, Unknown, Classify(wrapped))
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "transient", Transient.String())
	assert.Equal(t, "integrity_violation", IntegrityViolation.String())
	assert.Equal(t, "syntax_or_permission", SyntaxOrPermission.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestClassifiedError_Transient(t *testing.T) {
	err := ClassifiedError("connect", errors.New("connection refused"), nil)
	require.NotNil(t, err)
	assert.Equal(t, types.ErrCodeConnection, err.Code)
	assert.True(t, err.Retryable)
	assert.Equal(t, "connect", err.Operation)
	assert.NotEmpty(t, err.Suggestions)
}

func TestClassifiedError_TimeoutGetsDedicatedCodeAndHint(t *testing.T) {
	err := ClassifiedError("probe", errors.New("i/o timeout"), nil)
	require.NotNil(t, err)
	assert.Equal(t, types.ErrCodeConnectionTimeout, err.Code)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Suggestions, "Database server may be under heavy load. Try again later.")
}

func TestClassifiedError_ConstraintHints(t *testing.T) {
	tests := []struct {
		msg  string
		hint string
	}{
		{`duplicate key value violates unique constraint "pk"`, "The data you're trying to insert already exists."},
		{"update violates foreign key constraint", "The referenced data doesn't exist in the parent table."},
		{"NOT NULL constraint failed: t.c", "A required column is missing a value."},
		{"CHECK constraint failed: t", "The statement violates database constraints."},
	}

	for _, tt := range tests {
		err := ClassifiedError("insert", errors.New(tt.msg), nil)
		require.NotNil(t, err)
		assert.Equal(t, types.ErrCodeIntegrityViolation, err.Code, tt.msg)
		assert.False(t, err.Retryable)
		assert.Contains(t, err.Suggestions, tt.hint)
	}
}

func TestClassifiedError_StatementHints(t *testing.T) {
	syntaxErr := ClassifiedError("query", errors.New(`syntax error at or near "SELEC"`), nil)
	require.NotNil(t, syntaxErr)
	assert.Equal(t, types.ErrCodeSyntaxOrPermission, syntaxErr.Code)
	assert.Contains(t, syntaxErr.Suggestions, "Check for syntax errors in the SQL statement.")

	permErr := ClassifiedError("query", errors.New("permission denied for table users"), nil)
	require.NotNil(t, permErr)
	assert.Contains(t, permErr.Suggestions, "Contact your database administrator for appropriate permissions.")

	tableErr := ClassifiedError("query", errors.New("no such table: ghosts"), nil)
	require.NotNil(t, tableErr)
	assert.Contains(t, tableErr.Suggestions, "Verify the table exists and the name is spelled correctly.")
}

func TestClassifiedError_UnknownWrapsAsConnection(t *testing.T) {
	cause := errors.New("mystery failure")
	err := ClassifiedError("introspect", cause, nil)
	require.NotNil(t, err)
	assert.Equal(t, types.ErrCodeConnection, err.Code)
	assert.False(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
}

func TestClassifiedError_TypedErrorPassesThrough(t *testing.T) {
	orig := types.NewPoolExhaustedError("pool is full")
	err := ClassifiedError("get_engine", orig, map[string]any{"identity": "x", "password": "p"})

	assert.Same(t, orig, err, "typed errors must not be re-wrapped")
	assert.Equal(t, "get_engine", err.Operation)
	// 上下文在附加时已净化
	assert.Equal(t, "x", err.Context["identity"])
	assert.Equal(t, "***", err.Context["password"])
}

func TestClassifiedError_ContextSanitized(t *testing.T) {
	err := ClassifiedError("connect", errors.New("connection refused"), map[string]any{
		"host":       "db.internal",
		"password":   "hunter2",
		"api_token":  "t0k3n",
		"secret_key": "s3cr3t",
	})
	require.NotNil(t, err)

	assert.Equal(t, "db.internal", err.Context["host"])
	assert.Equal(t, "***", err.Context["password"])
	assert.Equal(t, "***", err.Context["api_token"])
	assert.Equal(t, "***", err.Context["secret_key"])
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestClassifiedError_Nil(t *testing.T) {
	assert.Nil(t, ClassifiedError("noop", nil, nil))
}
