package dbflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

// sessionForSchema returns a ctx-bound session for introspection queries.
// Unlike Session, introspection never auto-connects: inspecting a database
// you have not connected to is a caller bug, not a transient condition.
func (c *Connection) sessionForSchema(ctx context.Context) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.factory == nil {
		return nil, types.NewNotConnectedError(
			"not connected; call Connect before schema introspection")
	}
	return c.factory.Session(&gorm.Session{Context: ctx}), nil
}

// Tables lists the user tables of the connected database in sorted order.
func (c *Connection) Tables(ctx context.Context) ([]string, error) {
	session, err := c.sessionForSchema(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := session.Migrator().GetTables()
	if err != nil {
		return nil, retry.ClassifiedError("list_tables", err, nil)
	}
	sort.Strings(tables)
	return tables, nil
}

// Schema describes a single table: columns, primary key, foreign keys and
// indexes. Asking for a table that does not exist is reported as a query
// execution error naming the table.
func (c *Connection) Schema(ctx context.Context, table string) (*types.TableInfo, error) {
	session, err := c.sessionForSchema(ctx)
	if err != nil {
		return nil, err
	}
	return tableInfo(session, table)
}

// DatabaseSchema describes every user table in the connected database.
func (c *Connection) DatabaseSchema(ctx context.Context) (*types.SchemaInfo, error) {
	session, err := c.sessionForSchema(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := session.Migrator().GetTables()
	if err != nil {
		return nil, retry.ClassifiedError("describe_schema", err, nil)
	}
	sort.Strings(tables)

	info := &types.SchemaInfo{}
	if family, err := types.ParseDBType(session.Dialector.Name()); err == nil {
		info.DatabaseType = family
	}
	for _, table := range tables {
		ti, err := tableInfo(session, table)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *ti)
	}
	return info, nil
}

// SchemaSummary condenses the full schema into per-table counts plus
// inbound and outbound reference tallies, cheap enough to log or embed in
// a health report.
func (c *Connection) SchemaSummary(ctx context.Context) (*types.SchemaSummary, error) {
	schema, err := c.DatabaseSchema(ctx)
	if err != nil {
		return nil, err
	}

	inbound := make(map[string]int)
	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			inbound[fk.ReferencedTable]++
		}
	}

	summary := &types.SchemaSummary{
		TableCount: len(schema.Tables),
		Tables:     make(map[string]types.TableSummary, len(schema.Tables)),
	}
	for _, t := range schema.Tables {
		cols := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cols[i] = col.Name
		}
		summary.Tables[t.Name] = types.TableSummary{
			ColumnCount:  len(t.Columns),
			Columns:      cols,
			IndexCount:   len(t.Indexes),
			InboundRefs:  inbound[t.Name],
			OutboundRefs: len(t.ForeignKeys),
		}
	}
	return summary, nil
}

func tableInfo(session *gorm.DB, table string) (*types.TableInfo, error) {
	m := session.Migrator()
	if !m.HasTable(table) {
		return nil, types.NewQueryExecutionError(
			fmt.Sprintf("table %q does not exist", table),
			"Verify the table exists and the name is spelled correctly.")
	}

	columns, err := m.ColumnTypes(table)
	if err != nil {
		return nil, retry.ClassifiedError("describe_table", err,
			map[string]any{"table": table})
	}
	info := &types.TableInfo{Name: table}
	for _, col := range columns {
		ci := types.ColumnInfo{Name: col.Name(), DataType: col.DatabaseTypeName()}
		if nullable, ok := col.Nullable(); ok {
			ci.Nullable = nullable
		}
		if def, ok := col.DefaultValue(); ok {
			ci.DefaultValue = &def
		}
		if length, ok := col.Length(); ok {
			ci.MaxLength = &length
		}
		if pk, ok := col.PrimaryKey(); ok && pk {
			ci.PrimaryKey = true
			info.PrimaryKey = append(info.PrimaryKey, col.Name())
		}
		if unique, ok := col.Unique(); ok {
			ci.Unique = unique
		}
		if comment, ok := col.Comment(); ok {
			ci.Comment = comment
		}
		info.Columns = append(info.Columns, ci)
	}

	indexes, err := m.GetIndexes(table)
	if err != nil {
		return nil, retry.ClassifiedError("describe_table", err,
			map[string]any{"table": table})
	}
	for _, idx := range indexes {
		ii := types.IndexInfo{Name: idx.Name(), Columns: idx.Columns()}
		if unique, ok := idx.Unique(); ok {
			ii.Unique = unique
		}
		if pk, ok := idx.PrimaryKey(); ok {
			ii.PrimaryKey = pk
		}
		info.Indexes = append(info.Indexes, ii)
	}

	fks, err := foreignKeys(session, table)
	if err != nil {
		return nil, err
	}
	info.ForeignKeys = fks
	return info, nil
}

// foreignKeys reads foreign key constraints through each dialect's native
// catalog. GORM's migrator has no portable accessor for these.
func foreignKeys(session *gorm.DB, table string) ([]types.ForeignKeyInfo, error) {
	switch session.Dialector.Name() {
	case "sqlite":
		return sqliteForeignKeys(session, table)
	case "postgres":
		return postgresForeignKeys(session, table)
	case "mysql":
		return mysqlForeignKeys(session, table)
	case "sqlserver":
		return sqlserverForeignKeys(session, table)
	default:
		return nil, nil
	}
}

// fkRow is the dialect-neutral shape the catalog queries are aliased to.
type fkRow struct {
	ConstraintName   string `gorm:"column:constraint_name"`
	ColumnName       string `gorm:"column:column_name"`
	ReferencedTable  string `gorm:"column:referenced_table"`
	ReferencedColumn string `gorm:"column:referenced_column"`
}

func (r fkRow) info(table string) types.ForeignKeyInfo {
	return types.ForeignKeyInfo{
		Name:             r.ConstraintName,
		Table:            table,
		Column:           r.ColumnName,
		ReferencedTable:  r.ReferencedTable,
		ReferencedColumn: r.ReferencedColumn,
	}
}

func collectFKs(session *gorm.DB, table, query string, args ...any) ([]types.ForeignKeyInfo, error) {
	var rows []fkRow
	if err := session.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, retry.ClassifiedError("describe_table", err,
			map[string]any{"table": table})
	}
	fks := make([]types.ForeignKeyInfo, 0, len(rows))
	for _, r := range rows {
		fks = append(fks, r.info(table))
	}
	return fks, nil
}

// sqliteForeignKeys reads PRAGMA foreign_key_list. SQLite does not name
// constraints, and the referenced column is empty when the FK targets the
// referenced table's implicit primary key.
func sqliteForeignKeys(session *gorm.DB, table string) ([]types.ForeignKeyInfo, error) {
	type pragmaRow struct {
		Table string  `gorm:"column:table"`
		From  string  `gorm:"column:from"`
		To    *string `gorm:"column:to"`
	}

	// PRAGMA does not take bound parameters; table existence was already
	// verified, quote the identifier SQL-style.
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	var rows []pragmaRow
	if err := session.Raw("PRAGMA foreign_key_list(" + quoted + ")").Scan(&rows).Error; err != nil {
		return nil, retry.ClassifiedError("describe_table", err,
			map[string]any{"table": table})
	}

	fks := make([]types.ForeignKeyInfo, 0, len(rows))
	for _, r := range rows {
		fk := types.ForeignKeyInfo{
			Table:           table,
			Column:          r.From,
			ReferencedTable: r.Table,
		}
		if r.To != nil {
			fk.ReferencedColumn = *r.To
		}
		fks = append(fks, fk)
	}
	return fks, nil
}

func postgresForeignKeys(session *gorm.DB, table string) ([]types.ForeignKeyInfo, error) {
	const query = `
		SELECT tc.constraint_name  AS constraint_name,
		       kcu.column_name     AS column_name,
		       ccu.table_name      AS referenced_table,
		       ccu.column_name     AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = ?`
	return collectFKs(session, table, query, table)
}

func mysqlForeignKeys(session *gorm.DB, table string) ([]types.ForeignKeyInfo, error) {
	const query = `
		SELECT CONSTRAINT_NAME        AS constraint_name,
		       COLUMN_NAME            AS column_name,
		       REFERENCED_TABLE_NAME  AS referenced_table,
		       REFERENCED_COLUMN_NAME AS referenced_column
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_NAME = ?
		  AND REFERENCED_TABLE_NAME IS NOT NULL`
	return collectFKs(session, table, query, table)
}

func sqlserverForeignKeys(session *gorm.DB, table string) ([]types.ForeignKeyInfo, error) {
	const query = `
		SELECT fk.name AS constraint_name,
		       pc.name AS column_name,
		       rt.name AS referenced_table,
		       rc.name AS referenced_column
		FROM sys.foreign_key_columns fkc
		JOIN sys.foreign_keys fk ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables pt ON fkc.parent_object_id = pt.object_id
		JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id
		 AND fkc.parent_column_id = pc.column_id
		JOIN sys.tables rt ON fkc.referenced_object_id = rt.object_id
		JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id
		 AND fkc.referenced_column_id = rc.column_id
		WHERE pt.name = ?`
	return collectFKs(session, table, query, table)
}
