package pool

import (
	"sort"
	"time"
)

// Stats 连接池运行时快照
type Stats struct {
	// 当前缓存的引擎数
	ActiveConnections int `json:"active_connections"`
	// 池内基础容量
	PoolSize int `json:"pool_size"`
	// 溢出容量
	MaxOverflow int `json:"max_overflow"`
	// 脱敏后的连接身份（字典序）
	Identities []string `json:"identities"`
	// 各身份最近一次被使用的时间
	LastUsed map[string]time.Time `json:"last_used"`
}

// Stats 返回池的当前状态快照。身份串已脱敏，可直接进日志或诊断输出。
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Stats{
		ActiveConnections: len(p.entries),
		PoolSize:          p.cfg.PoolSize,
		MaxOverflow:       p.cfg.MaxOverflow,
		Identities:        make([]string, 0, len(p.entries)),
		LastUsed:          make(map[string]time.Time, len(p.entries)),
	}
	for id, e := range p.entries {
		key := id.String()
		s.Identities = append(s.Identities, key)
		s.LastUsed[key] = e.lastUsed
	}
	sort.Strings(s.Identities)
	return s
}
