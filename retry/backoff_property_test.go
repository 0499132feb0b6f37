package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestProperty_Decide_BackoffLaw 对任意策略与重试序号：
// 延迟非负、单调不减、永不超过 MaxDelay；预算内的瞬态错误总是重试。
func TestProperty_Decide_BackoffLaw(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := Policy{
			MaxRetries:         rapid.IntRange(1, 16).Draw(rt, "maxRetries"),
			BaseDelay:          time.Duration(rapid.IntRange(1, 5000).Draw(rt, "baseMs")) * time.Millisecond,
			MaxDelay:           time.Duration(rapid.IntRange(1, 60000).Draw(rt, "maxMs")) * time.Millisecond,
			ExponentialBackoff: rapid.Bool().Draw(rt, "exponential"),
		}.normalize()

		var prev time.Duration
		for attempt := 1; attempt <= p.MaxRetries; attempt++ {
			shouldRetry, delay := Decide(Transient, attempt, p)
			require.True(rt, shouldRetry, "attempt %d within budget must retry", attempt)
			require.GreaterOrEqual(rt, delay, time.Duration(0))
			require.LessOrEqual(rt, delay, p.MaxDelay)
			require.GreaterOrEqual(rt, delay, prev, "backoff must be nondecreasing")
			if !p.ExponentialBackoff {
				require.Equal(rt, p.BaseDelay, delay)
			}
			prev = delay
		}

		// 预算外永不重试
		shouldRetry, delay := Decide(Transient, p.MaxRetries+1, p)
		require.False(rt, shouldRetry)
		require.Zero(rt, delay)
	})
}

// TestProperty_Executor_AttemptAccounting 持续瞬态失败时，
// 任意 MaxRetries 下总尝试次数恒为 MaxRetries+1，且错误记录该值。
func TestProperty_Executor_AttemptAccounting(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxRetries := rapid.IntRange(0, 6).Draw(rt, "maxRetries")
		exec := NewExecutor(Policy{
			MaxRetries:         maxRetries,
			BaseDelay:          time.Microsecond,
			ExponentialBackoff: true,
		})

		callCount := 0
		err := exec.Do(context.Background(), "op", func(context.Context) error {
			callCount++
			return errRefused
		})

		require.Error(rt, err)
		require.Equal(rt, maxRetries+1, callCount)
	})
}
