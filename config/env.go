// =============================================================================
// 📦 环境变量派生连接配置
// =============================================================================
// 支持 .env 文件加载与 DB_* 变量派生的连接配置
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/BaSui01/dbflow/types"
)

// 环境变量名
const (
	EnvDBType     = "DB_TYPE"
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBDatabase = "DB_DATABASE"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
)

// LoadDotenv 加载 .env 文件到进程环境。文件不存在时静默跳过，
// 已存在的环境变量不会被覆盖。
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return types.NewConfigurationError(
				fmt.Sprintf("failed to load env file %s: %v", p, err)).WithCause(err)
		}
	}
	return nil
}

// ConnectionFromEnv 从 DB_* 环境变量派生连接配置。
// DB_TYPE 与 DB_DATABASE 为必填；其余字段缺省为空并在构建连接串时校验。
func ConnectionFromEnv() (ConnectionConfig, error) {
	rawType := os.Getenv(EnvDBType)
	if rawType == "" {
		return ConnectionConfig{}, types.NewConfigurationError(
			fmt.Sprintf("missing required environment variable %s", EnvDBType))
	}
	dbType, err := types.ParseDBType(rawType)
	if err != nil {
		return ConnectionConfig{}, err
	}

	database := os.Getenv(EnvDBDatabase)
	if database == "" {
		return ConnectionConfig{}, types.NewConfigurationError(
			fmt.Sprintf("missing required environment variable %s", EnvDBDatabase))
	}

	cfg := ConnectionConfig{
		Type:     dbType,
		Host:     os.Getenv(EnvDBHost),
		Database: database,
		Username: os.Getenv(EnvDBUser),
		Password: os.Getenv(EnvDBPassword),
	}

	if rawPort := os.Getenv(EnvDBPort); rawPort != "" {
		port, err := strconv.Atoi(rawPort)
		if err != nil {
			return ConnectionConfig{}, types.NewConfigurationError(
				fmt.Sprintf("invalid %s value %q", EnvDBPort, rawPort)).WithCause(err)
		}
		cfg.Port = port
	}

	return cfg, nil
}
