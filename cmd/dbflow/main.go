// =============================================================================
// dbflow 诊断工具入口
// =============================================================================
// 数据库连通性诊断命令行，覆盖连接探测、模式内省与原生 SQL 执行
//
// 使用方法:
//
//	dbflow ping                          # 连通性探测
//	dbflow ping --config dbflow.yaml     # 指定配置文件
//	dbflow ping --pooled                 # 经由连接池并输出池状态
//	dbflow schema                        # 输出完整数据库模式（JSON）
//	dbflow schema --table users          # 输出单表模式
//	dbflow schema --summary              # 输出表与关系计数
//	dbflow exec "SELECT 1 AS probe"      # 执行原生 SQL
//	dbflow version                       # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/dbflow"
	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/pool"
	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = dbflow.Version
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ping":
		runPing(os.Args[2:])
	case "schema":
		runSchema(os.Args[2:])
	case "exec":
		runExec(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🔧 公共连接标志
// =============================================================================

// connFlags 各诊断子命令共享的目标选择标志
type connFlags struct {
	configPath string
	envFile    string
	dsn        string
	fromEnv    bool
	verbose    bool
}

func registerConnFlags(fs *flag.FlagSet) *connFlags {
	cf := &connFlags{}
	fs.StringVar(&cf.configPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&cf.envFile, "env", "", `Path to .env file (default ".env", skipped when absent)`)
	fs.StringVar(&cf.dsn, "dsn", "", "Connection string (overrides config file)")
	fs.BoolVar(&cf.fromEnv, "from-env", false, "Derive the target from DB_* environment variables")
	fs.BoolVar(&cf.verbose, "verbose", false, "Enable debug logging")
	return cf
}

// loadTarget 加载配置并按标志选定连接目标
// 目标优先级: --dsn > --from-env > 配置文件（含 DBFLOW_* 环境变量覆盖）
func loadTarget(cf *connFlags) (*config.Config, config.ConnectionConfig, error) {
	var envPaths []string
	if cf.envFile != "" {
		envPaths = append(envPaths, cf.envFile)
	}
	if err := config.LoadDotenv(envPaths...); err != nil {
		return nil, config.ConnectionConfig{}, err
	}

	loader := config.NewLoader()
	if cf.configPath != "" {
		loader = loader.WithConfigPath(cf.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, config.ConnectionConfig{}, err
	}

	connCfg := cfg.Connection
	switch {
	case cf.dsn != "":
		connCfg = config.ConnectionConfig{ConnString: cf.dsn}
	case cf.fromEnv:
		connCfg, err = config.ConnectionFromEnv()
		if err != nil {
			return nil, config.ConnectionConfig{}, err
		}
	}
	return cfg, connCfg, nil
}

// =============================================================================
// 🏥 ping 命令
// =============================================================================

func runPing(args []string) {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	cf := registerConnFlags(fs)
	pooled := fs.Bool("pooled", false, "Route the connection through a managed pool and print pool stats")
	timeout := fs.Duration("timeout", 30*time.Second, "Overall command timeout")
	fs.Parse(args)

	logger := initLogger(cf.verbose)
	defer logger.Sync()

	cfg, connCfg, err := loadTarget(cf)
	if err != nil {
		fail(err)
	}

	opts := []dbflow.Option{
		dbflow.WithLogger(logger),
		dbflow.WithRetryPolicy(retry.PolicyFromConfig(cfg.Retry)),
	}

	var p *pool.Pool
	if *pooled {
		p = pool.New(cfg.Pool, pool.WithLogger(logger))
		opts = append(opts, dbflow.WithPool(p))
	}

	conn, err := dbflow.New(connCfg, opts...)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	if err := conn.Connect(ctx); err != nil {
		fail(err)
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	printJSON(conn.Info())
	if p != nil {
		printJSON(p.Stats())
	}

	if err := conn.Disconnect(); err != nil {
		fail(err)
	}
	if p != nil {
		p.DisposeAll()
	}

	fmt.Printf("OK (%s)\n", elapsed)
}

// =============================================================================
// 🗂️ schema 命令
// =============================================================================

func runSchema(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	cf := registerConnFlags(fs)
	table := fs.String("table", "", "Introspect a single table")
	summary := fs.Bool("summary", false, "Print table and relationship counts instead of the full schema")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall command timeout")
	fs.Parse(args)

	logger := initLogger(cf.verbose)
	defer logger.Sync()

	cfg, connCfg, err := loadTarget(cf)
	if err != nil {
		fail(err)
	}

	conn, err := dbflow.New(connCfg,
		dbflow.WithLogger(logger),
		dbflow.WithRetryPolicy(retry.PolicyFromConfig(cfg.Retry)),
	)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 模式内省要求已连接状态，显式 Connect
	if err := conn.Connect(ctx); err != nil {
		fail(err)
	}

	var out any
	switch {
	case *table != "":
		out, err = conn.Schema(ctx, *table)
	case *summary:
		out, err = conn.SchemaSummary(ctx)
	default:
		out, err = conn.DatabaseSchema(ctx)
	}
	if err != nil {
		fail(err)
	}

	printJSON(out)

	if err := conn.Disconnect(); err != nil {
		fail(err)
	}
}

// =============================================================================
// ⚡ exec 命令
// =============================================================================

func runExec(args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	cf := registerConnFlags(fs)
	timeout := fs.Duration("timeout", 60*time.Second, "Overall command timeout")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: dbflow exec [options] <sql>")
		os.Exit(1)
	}
	query := fs.Arg(0)

	logger := initLogger(cf.verbose)
	defer logger.Sync()

	cfg, connCfg, err := loadTarget(cf)
	if err != nil {
		fail(err)
	}

	conn, err := dbflow.New(connCfg,
		dbflow.WithLogger(logger),
		dbflow.WithRetryPolicy(retry.PolicyFromConfig(cfg.Retry)),
	)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// ExecuteRawSQL 会按需自动连接
	result, err := conn.ExecuteRawSQL(ctx, query)
	if err != nil {
		fail(err)
	}

	printJSON(result)

	if err := conn.Disconnect(); err != nil {
		fail(err)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("dbflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`dbflow - database connectivity diagnostics

Usage:
  dbflow <command> [options]

Commands:
  ping      Connect to the target database and report connection info
  schema    Introspect tables, columns, keys and indexes (JSON)
  exec      Execute a raw SQL statement and print the result (JSON)
  version   Show version information
  help      Show this help message

Connection options (ping, schema, exec):
  --config <path>   Path to configuration file (YAML)
  --env <path>      Path to .env file (default ".env", skipped when absent)
  --dsn <string>    Connection string (overrides config file)
  --from-env        Derive the target from DB_* environment variables
  --timeout <dur>   Overall command timeout
  --verbose         Enable debug logging

Examples:
  dbflow ping --dsn sqlite:///:memory:
  dbflow ping --config /etc/dbflow/dbflow.yaml --pooled
  dbflow schema --from-env --table users
  dbflow schema --summary
  dbflow exec "SELECT 1 AS probe"
  dbflow version`)
}

// =============================================================================
// 🔧 输出与日志
// =============================================================================

// fail 打印分类错误（含恢复建议）并退出
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if te, ok := types.AsError(err); ok && len(te.Suggestions) > 0 {
		fmt.Fprintln(os.Stderr, "Suggestions:")
		for _, s := range te.Suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
	}
	os.Exit(1)
}

// printJSON 以缩进 JSON 输出诊断结果
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(data))
}

// initLogger 构建诊断用控制台 logger，输出到 stderr 避免污染 JSON 结果
func initLogger(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewDevelopment()
	}

	return logger
}
