package dsn

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/BaSui01/dbflow/types"
)

// DialectorFunc converts a normalized connection string into a GORM
// dialector ready for gorm.Open.
type DialectorFunc func(connString string) (gorm.Dialector, error)

var (
	dialectorMu sync.RWMutex
	dialectors  = map[string]DialectorFunc{
		"sqlite":    sqliteDialector,
		"postgres":  postgresDialector,
		"mysql":     mysqlDialector,
		"sqlserver": sqlserverDialector,
	}
)

// RegisterDialector installs or replaces the dialector factory for a URL
// scheme. It is the extension point for families without a bundled driver;
// oracle connection strings build fine but need a registered driver before
// an engine can open.
func RegisterDialector(scheme string, fn DialectorFunc) {
	dialectorMu.Lock()
	defer dialectorMu.Unlock()
	dialectors[scheme] = fn
}

// Dialector resolves the GORM dialector for a normalized connection string.
// Unregistered schemes are a configuration error, raised before any network
// attempt.
func Dialector(connString string) (gorm.Dialector, error) {
	p, err := parse(connString)
	if err != nil {
		return nil, err
	}

	dialectorMu.RLock()
	fn, ok := dialectors[p.scheme]
	dialectorMu.RUnlock()
	if !ok {
		return nil, types.NewConfigurationError(
			fmt.Sprintf("no database driver registered for scheme %q", p.scheme))
	}
	return fn(connString)
}

// sqliteDialector opens the pure-Go SQLite driver on the file path.
func sqliteDialector(connString string) (gorm.Dialector, error) {
	path, ok := SQLitePath(connString)
	if !ok {
		return nil, types.NewConfigurationError(
			fmt.Sprintf("malformed sqlite connection string: %s", Redact(connString)))
	}
	return sqlite.Open(path), nil
}

// postgresDialector passes the URL form straight through; pgx accepts it.
func postgresDialector(connString string) (gorm.Dialector, error) {
	return postgres.Open(connString), nil
}

// mysqlDialector converts the URL form into the go-sql-driver DSN
// (user:pass@tcp(host:port)/db). parseTime is always on so DATETIME columns
// scan into time.Time.
func mysqlDialector(connString string) (gorm.Dialector, error) {
	p, err := parse(connString)
	if err != nil {
		return nil, err
	}
	if p.port == 0 {
		p.port = types.DBTypeMySQL.DefaultPort()
	}
	query := p.query
	if query == nil {
		query = url.Values{}
	}
	if query.Get("parseTime") == "" {
		query.Set("parseTime", "true")
	}
	native := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		p.username, p.password, p.host, p.port, p.database, query.Encode())
	return mysql.Open(native), nil
}

// sqlserverDialector passes the URL form straight through; the sqlserver
// driver consumes sqlserver://u:p@host:port?database=db natively.
func sqlserverDialector(connString string) (gorm.Dialector, error) {
	return sqlserver.Open(connString), nil
}
