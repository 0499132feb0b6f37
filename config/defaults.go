// =============================================================================
// 📦 dbflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/dbflow/types"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Connection: DefaultConnectionConfig(),
		Pool:       DefaultPoolConfig(),
		Retry:      DefaultRetryConfig(),
	}
}

// DefaultConnectionConfig 返回默认连接配置（内存 SQLite，开箱即用）
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Type:     types.DBTypeSQLite,
		Database: ":memory:",
	}
}

// DefaultPoolConfig 返回默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		PoolSize:            5,
		MaxOverflow:         10,
		PoolTimeout:         30 * time.Second,
		PoolRecycle:         30 * time.Minute,
		HealthCheckInterval: 5 * time.Minute,
	}
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:         3,
		BaseDelay:          time.Second,
		MaxDelay:           30 * time.Second,
		ExponentialBackoff: true,
	}
}
