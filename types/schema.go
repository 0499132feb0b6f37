package types

// ColumnInfo describes a single column of an introspected table.
type ColumnInfo struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"default_value,omitempty"`
	MaxLength    *int64  `json:"max_length,omitempty"`
	PrimaryKey   bool    `json:"primary_key"`
	Unique       bool    `json:"unique"`
	Comment      string  `json:"comment,omitempty"`
}

// IndexInfo describes a single index on a table.
type IndexInfo struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	Unique     bool     `json:"unique"`
	PrimaryKey bool     `json:"primary_key"`
}

// ForeignKeyInfo describes one foreign-key reference from a column of the
// owning table to a column of the referenced table. Name may be empty on
// engines that do not expose constraint names (SQLite).
type ForeignKeyInfo struct {
	Name             string `json:"name,omitempty"`
	Table            string `json:"table"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// TableInfo aggregates everything introspected about one table.
type TableInfo struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys,omitempty"`
	Indexes     []IndexInfo      `json:"indexes,omitempty"`
}

// Column looks up a column by name.
func (t *TableInfo) Column(name string) (*ColumnInfo, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// SchemaInfo is the fully introspected schema of one database.
type SchemaInfo struct {
	DatabaseType DBType      `json:"database_type"`
	Tables       []TableInfo `json:"tables"`
}

// Table looks up a table by name.
func (s *SchemaInfo) Table(name string) (*TableInfo, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// TableSummary condenses one table to counts and relationship degrees.
// InboundRefs counts foreign keys on other tables referencing this one;
// OutboundRefs counts foreign keys this table declares.
type TableSummary struct {
	ColumnCount  int      `json:"column_count"`
	Columns      []string `json:"columns"`
	IndexCount   int      `json:"index_count"`
	InboundRefs  int      `json:"inbound_refs"`
	OutboundRefs int      `json:"outbound_refs"`
}

// SchemaSummary condenses a database schema for quick inspection.
type SchemaSummary struct {
	TableCount int                     `json:"table_count"`
	Tables     map[string]TableSummary `json:"tables"`
}
