package pool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/dbflow/internal/metrics"
)

// =============================================================================
// 🔄 后台监护
// =============================================================================

// probeTimeout 单次存活探测的超时
const probeTimeout = 5 * time.Second

// StartMonitor 启动后台监护循环：按 HealthCheckInterval 周期对全部条目
// 执行回收判定与存活探测。幂等，重复调用不会产生第二个循环。
func (p *Pool) StartMonitor() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.monitorStop != nil {
		return
	}
	p.monitorStop = make(chan struct{})
	p.monitorDone = make(chan struct{})
	go p.monitorLoop(p.monitorStop, p.monitorDone)

	p.logger.Info("pool monitor started",
		zap.Duration("interval", p.cfg.HealthCheckInterval))
}

// StopMonitor 停止监护循环并等待其退出。未启动时为空操作。
func (p *Pool) StopMonitor() {
	p.mu.Lock()
	stop, done := p.monitorStop, p.monitorDone
	p.monitorStop, p.monitorDone = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	p.logger.Info("pool monitor stopped")
}

func (p *Pool) monitorLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep 执行一轮监护：先回收超过 PoolRecycle 未被使用的条目，
// 再对剩余条目做存活探测，失败即逐出。快照在读锁内完成，
// 探测与逐出全部在锁外执行，不阻塞正常取用。
func (p *Pool) sweep() {
	type candidate struct {
		e        *entry
		lastUsed time.Time
	}
	p.mu.RLock()
	snapshot := make([]candidate, 0, len(p.entries))
	for _, e := range p.entries {
		snapshot = append(snapshot, candidate{e: e, lastUsed: e.lastUsed})
	}
	p.mu.RUnlock()

	now := time.Now()
	for _, c := range snapshot {
		if now.Sub(c.lastUsed) > p.cfg.PoolRecycle {
			p.evict(c.e, metrics.EvictReasonRecycle)
			continue
		}
		if err := p.probe(c.e); err != nil {
			p.logger.Warn("health probe failed",
				zap.String("identity", c.e.identity.String()),
				zap.Error(err))
			p.evict(c.e, metrics.EvictReasonHealth)
		}
	}
}

// probe 对条目执行一次带超时的存活探测
func (p *Pool) probe(e *entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	start := time.Now()
	err := e.sqlDB.PingContext(ctx)
	p.collector.RecordProbe(time.Since(start))
	return err
}
