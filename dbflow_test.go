package dbflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(config.ConnectionConfig{Type: types.DBTypePostgres})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeConfiguration))

	_, err = New(config.ConnectionConfig{Type: "cassandra", Database: "ks"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeUnsupportedDBType))
}

func TestNew_AllowsEmptyConfig(t *testing.T) {
	// An entirely empty config defers target resolution to the environment
	// at Connect time, so construction must succeed.
	conn, err := New(config.ConnectionConfig{})
	require.NoError(t, err)
	assert.NotNil(t, conn)
}

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a, err := New(sqliteConfig())
	require.NoError(t, err)
	b, err := New(sqliteConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNew_RetryPolicyOverride(t *testing.T) {
	conn, err := New(sqliteConfig(), WithRetryPolicy(retry.Policy{MaxRetries: 7}))
	require.NoError(t, err)
	assert.Equal(t, 7, conn.executor.Policy().MaxRetries)

	// Default policy applies when no override is given.
	conn, err = New(sqliteConfig())
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPolicy().MaxRetries, conn.executor.Policy().MaxRetries)
}

func TestReturnsRows(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM users", true},
		{"  select 1", true},
		{"WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"PRAGMA table_info(users)", true},
		{"EXPLAIN SELECT 1", true},
		{"INSERT INTO t (v) VALUES (1) RETURNING id", true},
		{"INSERT INTO users (name) VALUES ('a')", false},
		{"UPDATE users SET name = 'b'", false},
		{"DELETE FROM users", false},
		{"CREATE TABLE t (id INTEGER)", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, returnsRows(tc.query), "query: %s", tc.query)
	}
}
