package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/dsn"
	"github.com/BaSui01/dbflow/internal/metrics"
	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

// =============================================================================
// 🗄️ 连接池
// =============================================================================

// entry 是池内一个存活引擎的记录。由池独占持有，调用方只通过访问器
// 拿到引擎句柄；每次访问都会刷新 lastUsed。
type entry struct {
	engine   *gorm.DB
	factory  *gorm.DB // 绑定到 engine 的会话工厂
	sqlDB    *sql.DB
	identity dsn.Identity
	lastUsed time.Time
}

// dispose 释放条目持有的底层连接
func (e *entry) dispose() error {
	return e.sqlDB.Close()
}

// Pool 按连接身份缓存引擎。所有 map 变更都在同一把互斥锁内完成；
// 引擎创建与存活探测的网络 I/O 不持锁。
type Pool struct {
	cfg       config.PoolConfig
	logger    *zap.Logger
	collector *metrics.Collector
	dialector dsn.DialectorFunc

	metricsReg prometheus.Registerer
	metricsOn  bool

	mu      sync.RWMutex
	entries map[dsn.Identity]*entry
	closed  bool

	// 同一身份的并发创建去重
	group singleflight.Group

	monitorStop chan struct{}
	monitorDone chan struct{}
}

// Option 配置 Pool
type Option func(*Pool)

// WithLogger 注入日志器
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics 在给定注册表上注册 dbflow 指标族并启用采集。
// registerer 为 nil 时使用 prometheus 默认注册表。每个注册表只能
// 启用一次，重复注册同名指标族会在注册时 panic。
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(p *Pool) {
		p.metricsReg = registerer
		p.metricsOn = true
	}
}

// WithDialectorFunc 替换连接串到 GORM dialector 的转换，测试接缝
func WithDialectorFunc(fn dsn.DialectorFunc) Option {
	return func(p *Pool) {
		if fn != nil {
			p.dialector = fn
		}
	}
}

// New 创建连接池。池由组合根显式构建并注入各 facade（每进程一个），
// 库内不维护全局实例。越界的配置字段回落到默认值。
func New(cfg config.PoolConfig, opts ...Option) *Pool {
	defaults := config.DefaultPoolConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MaxOverflow < 0 {
		cfg.MaxOverflow = 0
	}
	if cfg.PoolTimeout <= 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
	if cfg.PoolRecycle <= 0 {
		cfg.PoolRecycle = defaults.PoolRecycle
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = defaults.HealthCheckInterval
	}

	p := &Pool{
		cfg:       cfg,
		logger:    zap.NewNop(),
		dialector: dsn.Dialector,
		entries:   make(map[dsn.Identity]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "connection_pool"))
	if p.metricsOn {
		p.collector = metrics.NewCollector("dbflow", p.metricsReg, p.logger)
	}

	p.logger.Info("connection pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("max_overflow", cfg.MaxOverflow),
		zap.Duration("pool_recycle", cfg.PoolRecycle),
		zap.Duration("health_check_interval", cfg.HealthCheckInterval),
	)
	return p
}

// Metrics 返回池的指标收集器。挂载该池的 facade 通过它上报重试与凭据
// 解析指标，保证全进程共用一套指标族。未启用指标时返回 nil（收集器的
// 所有方法都对 nil 安全）。
func (p *Pool) Metrics() *metrics.Collector {
	return p.collector
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// GetEngine 返回身份对应的缓存引擎，未命中时创建。
// 命中为 O(1) 并刷新最近使用时间；未命中且池已满时立即返回
// POOL_EXHAUSTED 分类错误，绝不阻塞等待。同一身份的并发创建
// 会合并为一次拨号。
func (p *Pool) GetEngine(ctx context.Context, connString string, extra map[string]any) (*gorm.DB, error) {
	id := dsn.NewIdentity(connString, extra)

	if engine, ok := p.touch(id); ok {
		return engine, nil
	}

	v, err, _ := p.group.Do(id.Key(), func() (any, error) {
		// 双检：同航班的跟随者直接复用刚插入的条目
		if engine, ok := p.touch(id); ok {
			return engine, nil
		}
		if err := p.admit(); err != nil {
			return nil, err
		}
		e, err := p.open(ctx, connString, id)
		if err != nil {
			return nil, err
		}
		return p.insert(e)
	})
	if err != nil {
		return nil, err
	}
	return v.(*gorm.DB), nil
}

// GetSessionFactory 返回身份对应引擎的会话工厂。
// 工厂是配置为每次派生全新会话的 *gorm.DB；对它调用 Session/WithContext
// 即可获得互不影响的工作单元。
func (p *Pool) GetSessionFactory(ctx context.Context, connString string, extra map[string]any) (*gorm.DB, error) {
	if _, err := p.GetEngine(ctx, connString, extra); err != nil {
		return nil, err
	}

	id := dsn.NewIdentity(connString, extra)
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		// GetEngine 与此处之间被监护循环逐出，按池满同等对待：调用方重试
		return nil, types.NewConnectionError("engine evicted during session factory acquisition").
			WithRetryable(true)
	}
	e.lastUsed = time.Now()
	return e.factory, nil
}

// touch 查找条目并刷新最近使用时间
func (p *Pool) touch(id dsn.Identity) (*gorm.DB, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = time.Now()
	return e.engine, true
}

// admit 检查池是否还能接纳新条目。满了立即失败：无阻塞准入控制。
func (p *Pool) admit() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return types.NewConnectionError("connection pool is disposed")
	}
	if len(p.entries) >= p.cfg.MaxEntries() {
		return types.NewPoolExhaustedError(
			fmt.Sprintf("connection pool is full (%d/%d)", len(p.entries), p.cfg.MaxEntries()))
	}
	return nil
}

// open 创建新引擎并执行一次存活探测。网络 I/O 全部发生在池锁之外。
func (p *Pool) open(ctx context.Context, connString string, id dsn.Identity) (*entry, error) {
	dialector, err := p.dialector(connString)
	if err != nil {
		return nil, err
	}

	engine, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, retry.ClassifiedError("create_engine", err,
			map[string]any{"identity": id.String()})
	}

	sqlDB, err := engine.DB()
	if err != nil {
		return nil, retry.ClassifiedError("create_engine", err,
			map[string]any{"identity": id.String()})
	}

	// 驱动层连接参数跟随池配置
	sqlDB.SetMaxIdleConns(p.cfg.PoolSize)
	sqlDB.SetMaxOpenConns(p.cfg.MaxEntries())
	sqlDB.SetConnMaxLifetime(p.cfg.PoolRecycle)

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.PoolTimeout)
	defer cancel()
	start := time.Now()
	if err := sqlDB.PingContext(probeCtx); err != nil {
		_ = sqlDB.Close()
		return nil, retry.ClassifiedError("create_engine", err,
			map[string]any{"identity": id.String()})
	}
	p.collector.RecordProbe(time.Since(start))

	return &entry{
		engine:   engine,
		factory:  engine.Session(&gorm.Session{NewDB: true}),
		sqlDB:    sqlDB,
		identity: id,
		lastUsed: time.Now(),
	}, nil
}

// insert 将新条目放入池内。身份撞车时保留已有条目并释放新引擎；
// 与其他身份并发创建导致超容时释放新引擎并报池满。
func (p *Pool) insert(e *entry) (*gorm.DB, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = e.dispose()
		return nil, types.NewConnectionError("connection pool is disposed")
	}
	if existing, ok := p.entries[e.identity]; ok {
		p.mu.Unlock()
		_ = e.dispose()
		return existing.engine, nil
	}
	if len(p.entries) >= p.cfg.MaxEntries() {
		n := len(p.entries)
		p.mu.Unlock()
		_ = e.dispose()
		return nil, types.NewPoolExhaustedError(
			fmt.Sprintf("connection pool is full (%d/%d)", n, p.cfg.MaxEntries()))
	}
	p.entries[e.identity] = e
	active := len(p.entries)
	p.mu.Unlock()

	p.collector.RecordPoolCreated()
	p.collector.SetPoolActive(active)
	p.logger.Info("engine created",
		zap.String("identity", e.identity.String()),
		zap.Int("active_connections", active),
	)
	return e.engine, nil
}

// evict 从池内移除条目并释放引擎。条目已被并发替换或移除时为空操作。
func (p *Pool) evict(target *entry, reason string) {
	p.mu.Lock()
	current, ok := p.entries[target.identity]
	if !ok || current != target {
		p.mu.Unlock()
		return
	}
	delete(p.entries, target.identity)
	active := len(p.entries)
	p.mu.Unlock()

	if err := target.dispose(); err != nil {
		p.logger.Warn("failed to dispose evicted engine",
			zap.String("identity", target.identity.String()), zap.Error(err))
	}
	p.collector.RecordPoolEvicted(reason)
	p.collector.SetPoolActive(active)
	p.logger.Info("engine evicted",
		zap.String("identity", target.identity.String()),
		zap.String("reason", reason),
		zap.Int("active_connections", active),
	)
}

// DisposeAll 停止监护循环并释放所有条目。用于进程收尾，不用于每请求。
// 之后的 GetEngine 调用返回分类连接错误。
func (p *Pool) DisposeAll() {
	p.StopMonitor()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	released := p.entries
	p.entries = make(map[dsn.Identity]*entry)
	p.mu.Unlock()

	for _, e := range released {
		if err := e.dispose(); err != nil {
			p.logger.Warn("failed to dispose engine",
				zap.String("identity", e.identity.String()), zap.Error(err))
		}
		p.collector.RecordPoolEvicted(metrics.EvictReasonDisposed)
	}
	p.collector.SetPoolActive(0)
	p.logger.Info("connection pool disposed", zap.Int("released", len(released)))
}
