// Package dsn builds normalized connection strings, stable pool identities,
// and GORM dialectors for the supported database families.
//
// 规范化连接串统一为 URL 形式（sqlite:///path、postgres://u:p@h:5432/db），
// 打开引擎时再转换为各驱动的原生 DSN。
package dsn

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/types"
)

// Build produces the normalized URL-form connection string for cfg.
// A non-empty cfg.ConnString wins over component fields. SQLite needs only a
// database path; networked families require username, password, host, and
// database, with ports defaulting per family. Missing fields fail before any
// network I/O.
func Build(cfg config.ConnectionConfig) (string, error) {
	if cfg.ConnString != "" {
		return cfg.ConnString, nil
	}
	if err := cfg.Type.Validate(); err != nil {
		return "", err
	}

	if cfg.Type == types.DBTypeSQLite {
		if cfg.Database == "" {
			return "", missingParams("database")
		}
		return fmt.Sprintf("sqlite:///%s", cfg.Database), nil
	}

	var missing []string
	if cfg.Username == "" {
		missing = append(missing, "username")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if cfg.Host == "" {
		missing = append(missing, "host")
	}
	if cfg.Database == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return "", missingParams(missing...)
	}

	u := url.URL{
		Scheme: cfg.Type.Scheme(),
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.EffectivePort()),
	}
	if cfg.Type == types.DBTypeSQLServer {
		// SQL Server 的数据库名走查询参数而非路径
		u.RawQuery = url.Values{"database": []string{cfg.Database}}.Encode()
	} else {
		u.Path = "/" + cfg.Database
	}
	return u.String(), nil
}

func missingParams(fields ...string) error {
	return types.NewConfigurationError(
		fmt.Sprintf("missing required connection parameters: %s", strings.Join(fields, ", ")))
}

// Family reports the database family of a normalized connection string.
func Family(connString string) (types.DBType, error) {
	p, err := parse(connString)
	if err != nil {
		return "", err
	}
	return types.ParseDBType(p.scheme)
}

// SQLitePath extracts the database path from a sqlite:///path string.
func SQLitePath(connString string) (string, bool) {
	const prefix = "sqlite:///"
	if !strings.HasPrefix(connString, prefix) {
		return "", false
	}
	return connString[len(prefix):], true
}

// Redact masks the password component of a connection string so it can be
// logged. Unparseable strings are replaced wholesale rather than risking a
// credential leak.
func Redact(connString string) string {
	if _, ok := SQLitePath(connString); ok {
		return connString
	}
	u, err := url.Parse(connString)
	if err != nil {
		return "<redacted-dsn>"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	s := u.String()
	// url.String 会对占位符转义，恢复为可读形式
	return strings.Replace(s, "xxxxx", "***", 1)
}

// parsed holds the components of a normalized connection string.
type parsed struct {
	scheme   string
	username string
	password string
	host     string
	port     int
	database string
	query    url.Values
}

// parse splits a normalized URL-form connection string into components.
func parse(connString string) (parsed, error) {
	if path, ok := SQLitePath(connString); ok {
		return parsed{scheme: "sqlite", database: path}, nil
	}
	u, err := url.Parse(connString)
	if err != nil {
		return parsed{}, types.NewConfigurationError(
			fmt.Sprintf("malformed connection string: %v", err)).WithCause(err)
	}

	p := parsed{scheme: u.Scheme, host: u.Hostname(), query: u.Query()}
	if u.User != nil {
		p.username = u.User.Username()
		p.password, _ = u.User.Password()
	}
	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return parsed{}, types.NewConfigurationError(
				fmt.Sprintf("malformed port in connection string: %q", portStr)).WithCause(err)
		}
		p.port = port
	}
	if db := p.query.Get("database"); db != "" {
		p.database = db
	} else {
		p.database = strings.TrimPrefix(u.Path, "/")
	}
	return p, nil
}
