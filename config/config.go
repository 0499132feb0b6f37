// =============================================================================
// 📦 dbflow 配置结构
// =============================================================================
// 连接、连接池与重试三组配置的统一定义
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("dbflow.yaml").
//	    WithEnvPrefix("DBFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/dbflow/types"
)

// Config 是 dbflow 的完整配置结构
type Config struct {
	// Connection 目标数据库连接配置
	Connection ConnectionConfig `yaml:"connection" env:"CONNECTION"`

	// Pool 连接池配置
	Pool PoolConfig `yaml:"pool" env:"POOL"`

	// Retry 重试配置
	Retry RetryConfig `yaml:"retry" env:"RETRY"`
}

// ConnectionConfig 描述一个逻辑数据库目标。
// ConnString 非空时直接使用；否则由组件字段构建规范化连接串。
type ConnectionConfig struct {
	// 数据库类型: sqlite, postgres, mysql, mssql, oracle
	Type types.DBType `yaml:"type" env:"TYPE"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口（0 表示按类型使用默认端口）
	Port int `yaml:"port" env:"PORT"`
	// 数据库名（SQLite 为文件路径或 :memory:）
	Database string `yaml:"database" env:"DATABASE"`
	// 用户名
	Username string `yaml:"username" env:"USERNAME"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 完整连接串（优先于组件字段）
	ConnString string `yaml:"conn_string" env:"CONN_STRING"`
	// 额外驱动参数（参与连接身份哈希）
	Options map[string]string `yaml:"options" env:"OPTIONS"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	// 池内基础容量
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 超出基础容量后允许的溢出数
	MaxOverflow int `yaml:"max_overflow" env:"MAX_OVERFLOW"`
	// 获取连接的超时时间
	PoolTimeout time.Duration `yaml:"pool_timeout" env:"POOL_TIMEOUT"`
	// 空闲连接回收阈值
	PoolRecycle time.Duration `yaml:"pool_recycle" env:"POOL_RECYCLE"`
	// 后台健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// RetryConfig 重试配置
type RetryConfig struct {
	// 最大重试次数（总尝试次数 = MaxRetries + 1）
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 首次重试前的基础延迟
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// 单次延迟上限
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 是否启用指数退避
	ExponentialBackoff bool `yaml:"exponential_backoff" env:"EXPONENTIAL_BACKOFF"`
}

// Validate 校验完整配置
func (c *Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return err
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	return c.Retry.Validate()
}

// Validate 校验连接配置的形状。必填字段组合由连接串构建器在使用时强制。
func (c *ConnectionConfig) Validate() error {
	var errs []string

	if c.ConnString == "" {
		if err := c.Type.Validate(); err != nil {
			return err
		}
		if c.Database == "" {
			errs = append(errs, "database is required")
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, "port must be in [0, 65535]")
	}

	if len(errs) > 0 {
		return types.NewConfigurationError(
			fmt.Sprintf("invalid connection config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// EffectivePort 返回显式端口，未设置时返回类型默认端口。
func (c *ConnectionConfig) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	return c.Type.DefaultPort()
}

// IsZero 报告连接配置是否完全为空。
// 完全为空的配置不在构造时校验，由 Connect 从环境变量派生连接目标。
func (c *ConnectionConfig) IsZero() bool {
	return c.Type == "" && c.Host == "" && c.Port == 0 &&
		c.Database == "" && c.Username == "" && c.Password == "" &&
		c.ConnString == "" && len(c.Options) == 0
}

// ExtraArgs 将 Options 转为参与身份哈希的通用映射。
func (c *ConnectionConfig) ExtraArgs() map[string]any {
	if len(c.Options) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.Options))
	for k, v := range c.Options {
		out[k] = v
	}
	return out
}

// Validate 校验连接池配置
func (c *PoolConfig) Validate() error {
	var errs []string

	if c.PoolSize <= 0 {
		errs = append(errs, "pool_size must be positive")
	}
	if c.MaxOverflow < 0 {
		errs = append(errs, "max_overflow cannot be negative")
	}
	if c.PoolTimeout <= 0 {
		errs = append(errs, "pool_timeout must be positive")
	}
	if c.PoolRecycle <= 0 {
		errs = append(errs, "pool_recycle must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		errs = append(errs, "health_check_interval must be positive")
	}

	if len(errs) > 0 {
		return types.NewConfigurationError(
			fmt.Sprintf("invalid pool config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// MaxEntries 返回池的硬容量上限。
func (c *PoolConfig) MaxEntries() int {
	return c.PoolSize + c.MaxOverflow
}

// Validate 校验重试配置
func (c *RetryConfig) Validate() error {
	var errs []string

	if c.MaxRetries < 0 {
		errs = append(errs, "max_retries cannot be negative")
	}
	if c.BaseDelay <= 0 {
		errs = append(errs, "base_delay must be positive")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.BaseDelay {
		errs = append(errs, "max_delay cannot be below base_delay")
	}

	if len(errs) > 0 {
		return types.NewConfigurationError(
			fmt.Sprintf("invalid retry config: %s", strings.Join(errs, "; ")))
	}
	return nil
}
