package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/internal/metrics"
	"github.com/BaSui01/dbflow/types"
)

// Policy 定义重试策略。
// 延迟公式：启用指数退避时 delay = BaseDelay × 2^(attempt−1)，否则恒为
// BaseDelay；MaxDelay > 0 时封顶。
type Policy struct {
	MaxRetries         int                                               // 最大重试次数（0 表示不重试；总尝试次数 = MaxRetries + 1）
	BaseDelay          time.Duration                                     // 首次重试前的基础延迟
	MaxDelay           time.Duration                                     // 单次延迟上限（0 表示不封顶）
	ExponentialBackoff bool                                              // 是否启用指数退避
	OnRetry            func(attempt int, err error, delay time.Duration) // 每次重试前的回调（可用于观测）
}

// DefaultPolicy 返回默认重试策略
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultRetryConfig())
}

// PolicyFromConfig 由配置构建重试策略
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxRetries:         cfg.MaxRetries,
		BaseDelay:          cfg.BaseDelay,
		MaxDelay:           cfg.MaxDelay,
		ExponentialBackoff: cfg.ExponentialBackoff,
	}
}

// normalize 纠正越界的策略字段，保证执行器循环有界
func (p Policy) normalize() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay > 0 && p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Context 跟踪一次被重试操作的进度。每次操作创建一个，结束即丢弃，
// 从不持久化。
type Context struct {
	Operation        string        // 操作名，用于日志与错误上下文
	Attempt          int           // 已执行的重试次数（不含首次尝试）
	LastErr          error         // 最近一次失败原因
	AccumulatedDelay time.Duration // 累计退避时长
}

// Decide 是纯重试决策函数：给定错误分类、即将进行的重试序号（1 起）
// 与策略，返回是否重试及退避时长。只有瞬态错误在预算内才会重试。
func Decide(class Classification, attempt int, p Policy) (bool, time.Duration) {
	if class != Transient {
		return false, 0
	}
	if attempt < 1 || attempt > p.MaxRetries {
		return false, 0
	}

	delay := float64(p.BaseDelay)
	if p.ExponentialBackoff {
		delay = float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return true, time.Duration(delay)
}

// Executor 按策略执行可重试操作。并发安全，可被多个 facade 共享。
type Executor struct {
	policy    Policy
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option 配置 Executor
type Option func(*Executor)

// WithLogger 注入日志器
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCollector 注入指标收集器（nil 安全）
func WithCollector(c *metrics.Collector) Option {
	return func(e *Executor) {
		e.collector = c
	}
}

// NewExecutor 创建重试执行器
func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{
		policy: policy.normalize(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "retry_executor"))
	return e
}

// Policy 返回执行器的（规范化后）策略副本
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do 执行 fn，瞬态失败按策略重试。
// 非瞬态错误经分类后立即返回，零重试；瞬态错误重试耗尽后返回携带
// 最后原因与总尝试次数的分类错误。退避睡眠可被 ctx 取消。
func (e *Executor) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	rc := Context{Operation: operation}

	for {
		err := fn(ctx)
		if err == nil {
			if rc.Attempt > 0 {
				e.logger.Info("operation recovered after retry",
					zap.String("operation", operation),
					zap.Int("attempts", rc.Attempt+1),
					zap.Duration("accumulated_delay", rc.AccumulatedDelay),
				)
			}
			return nil
		}
		rc.LastErr = err

		class := Classify(err)
		shouldRetry, delay := Decide(class, rc.Attempt+1, e.policy)
		if !shouldRetry {
			attempts := rc.Attempt + 1
			if class == Transient {
				// 预算耗尽
				e.logger.Warn("retries exhausted",
					zap.String("operation", operation),
					zap.Int("attempts", attempts),
					zap.Duration("accumulated_delay", rc.AccumulatedDelay),
					zap.Error(err),
				)
				e.collector.RecordRetryExhausted(operation)
			} else {
				e.logger.Debug("error is not retryable",
					zap.String("operation", operation),
					zap.String("classification", class.String()),
					zap.Error(err),
				)
			}
			return ClassifiedError(operation, err, nil).WithAttempts(attempts)
		}

		rc.Attempt++
		rc.AccumulatedDelay += delay
		e.logger.Warn("transient failure, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", rc.Attempt),
			zap.Int("max_retries", e.policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		e.collector.RecordRetryAttempt(operation)
		if e.policy.OnRetry != nil {
			e.policy.OnRetry(rc.Attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return types.NewConnectionError(
				fmt.Sprintf("retry canceled during %s", operation)).
				WithCause(ctx.Err()).
				WithOperation(operation).
				WithAttempts(rc.Attempt)
		case <-time.After(delay):
		}
	}
}

// DoValue is a type-safe generic wrapper around [Executor.Do] for operations
// that produce a value. It eliminates the need for type assertions on the
// result.
//
// Usage:
//
//	engine, err := retry.DoValue(exec, ctx, "get_engine", func(ctx context.Context) (*gorm.DB, error) {
//	    return pool.GetEngine(ctx, connString, nil)
//	})
func DoValue[T any](e *Executor, ctx context.Context, operation string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, operation, func(ctx context.Context) error {
		var ferr error
		result, ferr = fn(ctx)
		return ferr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
