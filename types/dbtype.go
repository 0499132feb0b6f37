package types

import (
	"fmt"
	"strings"
)

// DBType identifies a supported relational database family.
type DBType string

// Supported database types.
const (
	DBTypeSQLite    DBType = "sqlite"
	DBTypePostgres  DBType = "postgres"
	DBTypeMySQL     DBType = "mysql"
	DBTypeSQLServer DBType = "mssql"
	DBTypeOracle    DBType = "oracle"
)

// dbTypeAliases maps common alternate spellings onto canonical types.
var dbTypeAliases = map[string]DBType{
	"sqlite":     DBTypeSQLite,
	"sqlite3":    DBTypeSQLite,
	"postgres":   DBTypePostgres,
	"postgresql": DBTypePostgres,
	"mysql":      DBTypeMySQL,
	"mariadb":    DBTypeMySQL,
	"mssql":      DBTypeSQLServer,
	"sqlserver":  DBTypeSQLServer,
	"oracle":     DBTypeOracle,
}

// ParseDBType normalizes a database type string into a canonical DBType.
// Unknown values produce an UNSUPPORTED_DB_TYPE configuration error.
func ParseDBType(s string) (DBType, error) {
	if t, ok := dbTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", NewError(ErrCodeUnsupportedDBType, fmt.Sprintf("unsupported database type: %q", s))
}

// Validate reports whether t is a member of the supported set.
func (t DBType) Validate() error {
	switch t {
	case DBTypeSQLite, DBTypePostgres, DBTypeMySQL, DBTypeSQLServer, DBTypeOracle:
		return nil
	default:
		return NewError(ErrCodeUnsupportedDBType, fmt.Sprintf("unsupported database type: %q", t))
	}
}

// DefaultPort returns the conventional server port for networked database
// types and 0 for file-based ones.
func (t DBType) DefaultPort() int {
	switch t {
	case DBTypePostgres:
		return 5432
	case DBTypeMySQL:
		return 3306
	case DBTypeSQLServer:
		return 1433
	case DBTypeOracle:
		return 1521
	default:
		return 0
	}
}

// RequiresNetwork reports whether connections to t need host and credential
// fields. SQLite opens a local file and needs only a database path.
func (t DBType) RequiresNetwork() bool {
	return t != DBTypeSQLite
}

// Scheme returns the URL scheme used in normalized connection strings.
func (t DBType) Scheme() string {
	if t == DBTypeSQLServer {
		return "sqlserver"
	}
	return string(t)
}

// String implements fmt.Stringer.
func (t DBType) String() string {
	return string(t)
}
