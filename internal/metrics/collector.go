// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 收集连接池、重试与凭据解析三族指标。
// 所有记录方法都是 nil 安全的：收集器缺席时调用是空操作，
// 业务代码不需要判空。
type Collector struct {
	// 连接池指标
	poolActiveConnections prometheus.Gauge
	poolCreatedTotal      prometheus.Counter
	poolEvictedTotal      *prometheus.CounterVec
	poolProbeDuration     prometheus.Histogram

	// 重试指标
	retryAttemptsTotal  *prometheus.CounterVec
	retryExhaustedTotal *prometheus.CounterVec

	// 凭据解析指标
	authResolvesTotal *prometheus.CounterVec

	logger *zap.Logger
}

// 池条目被逐出的原因标签值
const (
	EvictReasonHealth   = "health"
	EvictReasonRecycle  = "recycle"
	EvictReasonDisposed = "disposed"
)

// NewCollector 创建指标收集器。
// registerer 为 nil 时使用 prometheus 默认注册表；测试传入私有注册表
// 以避免跨用例的重复注册冲突。
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(registerer)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 连接池指标
	c.poolActiveConnections = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_active_connections",
		Help:      "Number of live pooled engines",
	})

	c.poolCreatedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pool_created_total",
		Help:      "Total number of engines created by the pool",
	})

	c.poolEvictedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pool_evicted_total",
		Help:      "Total number of engines evicted from the pool",
	}, []string{"reason"}) // reason: health, recycle, disposed

	c.poolProbeDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pool_probe_duration_seconds",
		Help:      "Liveness probe duration in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// 重试指标
	c.retryAttemptsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retry_attempts_total",
		Help:      "Total number of retry attempts by operation",
	}, []string{"operation"})

	c.retryExhaustedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retry_exhausted_total",
		Help:      "Total number of operations that exhausted their retry budget",
	}, []string{"operation"})

	// 凭据解析指标
	c.authResolvesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_resolves_total",
		Help:      "Total number of credential resolutions by auth type and status",
	}, []string{"auth_type", "status"})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🗄️ 连接池指标记录
// =============================================================================

// SetPoolActive 记录池内存活引擎数
func (c *Collector) SetPoolActive(n int) {
	if c == nil {
		return
	}
	c.poolActiveConnections.Set(float64(n))
}

// RecordPoolCreated 记录一次引擎创建
func (c *Collector) RecordPoolCreated() {
	if c == nil {
		return
	}
	c.poolCreatedTotal.Inc()
}

// RecordPoolEvicted 按原因记录一次引擎逐出
func (c *Collector) RecordPoolEvicted(reason string) {
	if c == nil {
		return
	}
	c.poolEvictedTotal.WithLabelValues(reason).Inc()
}

// RecordProbe 记录一次存活探测时长
func (c *Collector) RecordProbe(d time.Duration) {
	if c == nil {
		return
	}
	c.poolProbeDuration.Observe(d.Seconds())
}

// =============================================================================
// 🔄 重试指标记录
// =============================================================================

// RecordRetryAttempt 记录一次重试
func (c *Collector) RecordRetryAttempt(operation string) {
	if c == nil {
		return
	}
	c.retryAttemptsTotal.WithLabelValues(operation).Inc()
}

// RecordRetryExhausted 记录一次重试预算耗尽
func (c *Collector) RecordRetryExhausted(operation string) {
	if c == nil {
		return
	}
	c.retryExhaustedTotal.WithLabelValues(operation).Inc()
}

// =============================================================================
// 🔐 凭据解析指标记录
// =============================================================================

// RecordAuthResolve 按认证类型与结果记录一次凭据解析
func (c *Collector) RecordAuthResolve(authType, status string) {
	if c == nil {
		return
	}
	c.authResolvesTotal.WithLabelValues(authType, status).Inc()
}
