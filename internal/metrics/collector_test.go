package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestCollector 在私有注册表上创建收集器，避免跨用例重复注册
func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("dbflow", reg, zap.NewNop()), reg
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector, _ := newTestCollector(t)

	require.NotNil(t, collector)
	assert.NotNil(t, collector.poolActiveConnections)
	assert.NotNil(t, collector.poolCreatedTotal)
	assert.NotNil(t, collector.poolEvictedTotal)
	assert.NotNil(t, collector.poolProbeDuration)
	assert.NotNil(t, collector.retryAttemptsTotal)
	assert.NotNil(t, collector.retryExhaustedTotal)
	assert.NotNil(t, collector.authResolvesTotal)
}

func TestCollector_PoolMetrics(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.SetPoolActive(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.poolActiveConnections))

	collector.RecordPoolCreated()
	collector.RecordPoolCreated()
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.poolCreatedTotal))

	collector.RecordPoolEvicted(EvictReasonHealth)
	collector.RecordPoolEvicted(EvictReasonRecycle)
	collector.RecordPoolEvicted(EvictReasonRecycle)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.poolEvictedTotal.WithLabelValues(EvictReasonHealth)))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.poolEvictedTotal.WithLabelValues(EvictReasonRecycle)))

	collector.RecordProbe(5 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(collector.poolProbeDuration))
}

func TestCollector_RetryMetrics(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordRetryAttempt("connect")
	collector.RecordRetryAttempt("connect")
	collector.RecordRetryExhausted("connect")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.retryAttemptsTotal.WithLabelValues("connect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.retryExhaustedTotal.WithLabelValues("connect")))
}

func TestCollector_AuthMetrics(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordAuthResolve("basic", "ok")
	collector.RecordAuthResolve("environment", "error")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.authResolvesTotal.WithLabelValues("basic", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.authResolvesTotal.WithLabelValues("environment", "error")))
}

// nil 收集器上的所有记录调用都必须是安全的空操作
func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.SetPoolActive(1)
		c.RecordPoolCreated()
		c.RecordPoolEvicted(EvictReasonDisposed)
		c.RecordProbe(time.Millisecond)
		c.RecordRetryAttempt("op")
		c.RecordRetryExhausted("op")
		c.RecordAuthResolve("basic", "ok")
	})
}

// 默认注册表路径：registerer 传 nil 不应 panic。
// 指标名会进入全局注册表，因此使用独立的命名空间。
func TestNewCollector_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("dbflow_test_nilreg", nil, nil)
	})
}
