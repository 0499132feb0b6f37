package dbflow

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/dbflow/testutil"
	"github.com/BaSui01/dbflow/types"
)

// schemaConn returns a connected in-memory database seeded with two
// related tables and a secondary index.
func schemaConn(t *testing.T) (*Connection, context.Context) {
	t.Helper()
	ctx := testutil.TestContext(t)

	conn, err := New(sqliteConfig())
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { _ = conn.Disconnect() })

	for _, stmt := range []string{
		`CREATE TABLE authors (
			id    INTEGER PRIMARY KEY,
			name  TEXT NOT NULL,
			email TEXT UNIQUE
		)`,
		`CREATE TABLE books (
			id        INTEGER PRIMARY KEY,
			author_id INTEGER NOT NULL REFERENCES authors(id),
			title     TEXT NOT NULL DEFAULT 'untitled'
		)`,
		`CREATE INDEX idx_books_title ON books(title)`,
	} {
		_, err := conn.ExecuteRawSQL(ctx, stmt)
		require.NoError(t, err)
	}
	return conn, ctx
}

func TestConnection_Tables(t *testing.T) {
	conn, ctx := schemaConn(t)

	tables, err := conn.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "books"}, tables)
}

func TestConnection_Schema(t *testing.T) {
	conn, ctx := schemaConn(t)

	info, err := conn.Schema(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "books", info.Name)
	assert.Equal(t, []string{"id"}, info.PrimaryKey)

	names := make([]string, len(info.Columns))
	for i, col := range info.Columns {
		names[i] = col.Name
	}
	assert.ElementsMatch(t, []string{"id", "author_id", "title"}, names)

	id, ok := info.Column("id")
	require.True(t, ok)
	assert.True(t, id.PrimaryKey)

	authorID, ok := info.Column("author_id")
	require.True(t, ok)
	assert.False(t, authorID.Nullable)

	title, ok := info.Column("title")
	require.True(t, ok)
	require.NotNil(t, title.DefaultValue)
	assert.Contains(t, *title.DefaultValue, "untitled")

	require.Len(t, info.ForeignKeys, 1)
	fk := info.ForeignKeys[0]
	assert.Equal(t, "books", fk.Table)
	assert.Equal(t, "author_id", fk.Column)
	assert.Equal(t, "authors", fk.ReferencedTable)
	assert.Equal(t, "id", fk.ReferencedColumn)

	var indexNames []string
	for _, idx := range info.Indexes {
		indexNames = append(indexNames, idx.Name)
	}
	assert.Contains(t, indexNames, "idx_books_title")
	for _, idx := range info.Indexes {
		if idx.Name == "idx_books_title" {
			assert.Equal(t, []string{"title"}, idx.Columns)
			assert.False(t, idx.Unique)
		}
	}
}

func TestConnection_Schema_MissingTable(t *testing.T) {
	conn, ctx := schemaConn(t)

	_, err := conn.Schema(ctx, "ghosts")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeQueryExecution))
	assert.Contains(t, err.Error(), `"ghosts"`)
}

func TestConnection_Schema_RequiresConnection(t *testing.T) {
	ctx := testutil.TestContext(t)

	conn, err := New(sqliteConfig())
	require.NoError(t, err)

	_, err = conn.Tables(ctx)
	assert.True(t, types.IsCode(err, types.ErrCodeNotConnected))

	_, err = conn.Schema(ctx, "authors")
	assert.True(t, types.IsCode(err, types.ErrCodeNotConnected))

	_, err = conn.DatabaseSchema(ctx)
	assert.True(t, types.IsCode(err, types.ErrCodeNotConnected))

	_, err = conn.SchemaSummary(ctx)
	assert.True(t, types.IsCode(err, types.ErrCodeNotConnected))

	// Introspection must not silently connect.
	assert.False(t, conn.IsConnected(ctx))
}

func TestConnection_DatabaseSchema(t *testing.T) {
	conn, ctx := schemaConn(t)

	schema, err := conn.DatabaseSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.DBTypeSQLite, schema.DatabaseType)
	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "authors", schema.Tables[0].Name)
	assert.Equal(t, "books", schema.Tables[1].Name)

	books, ok := schema.Table("books")
	require.True(t, ok)
	assert.Len(t, books.ForeignKeys, 1)
	_, ok = schema.Table("ghosts")
	assert.False(t, ok)
}

// The sqlite catalog path is covered end to end above; the networked
// dialects are verified against mocked catalog result sets.
func TestForeignKeys_DialectCatalogs(t *testing.T) {
	fkCols := []string{"constraint_name", "column_name", "referenced_table", "referenced_column"}

	t.Run("postgres dispatch and mapping", func(t *testing.T) {
		engine, mock := testutil.NewMockEngine(t)
		mock.ExpectQuery(`information_schema\.table_constraints`).
			WithArgs("books").
			WillReturnRows(sqlmock.NewRows(fkCols).
				AddRow("fk_books_author", "author_id", "authors", "id"))

		// The mock engine speaks postgres, so dispatch lands on the
		// information_schema query.
		fks, err := foreignKeys(engine, "books")
		require.NoError(t, err)
		require.Len(t, fks, 1)
		assert.Equal(t, types.ForeignKeyInfo{
			Name:             "fk_books_author",
			Table:            "books",
			Column:           "author_id",
			ReferencedTable:  "authors",
			ReferencedColumn: "id",
		}, fks[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql KEY_COLUMN_USAGE mapping", func(t *testing.T) {
		engine, mock := testutil.NewMockEngine(t)
		mock.ExpectQuery(`KEY_COLUMN_USAGE`).
			WithArgs("books").
			WillReturnRows(sqlmock.NewRows(fkCols).
				AddRow("books_ibfk_1", "author_id", "authors", "id"))

		fks, err := mysqlForeignKeys(engine, "books")
		require.NoError(t, err)
		require.Len(t, fks, 1)
		assert.Equal(t, "books_ibfk_1", fks[0].Name)
		assert.Equal(t, "authors", fks[0].ReferencedTable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sqlserver sys catalog mapping", func(t *testing.T) {
		engine, mock := testutil.NewMockEngine(t)
		mock.ExpectQuery(`sys\.foreign_key_columns`).
			WithArgs("books").
			WillReturnRows(sqlmock.NewRows(fkCols).
				AddRow("FK_books_authors", "author_id", "authors", "id"))

		fks, err := sqlserverForeignKeys(engine, "books")
		require.NoError(t, err)
		require.Len(t, fks, 1)
		assert.Equal(t, "FK_books_authors", fks[0].Name)
		assert.Equal(t, "id", fks[0].ReferencedColumn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("catalog failure is classified", func(t *testing.T) {
		engine, mock := testutil.NewMockEngine(t)
		mock.ExpectQuery(`information_schema\.table_constraints`).
			WillReturnError(errors.New("permission denied for table pg_constraint"))

		_, err := foreignKeys(engine, "books")
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeSyntaxOrPermission))
	})
}

func TestConnection_SchemaSummary(t *testing.T) {
	conn, ctx := schemaConn(t)

	summary, err := conn.SchemaSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TableCount)

	books, ok := summary.Tables["books"]
	require.True(t, ok)
	assert.Equal(t, 3, books.ColumnCount)
	assert.ElementsMatch(t, []string{"id", "author_id", "title"}, books.Columns)
	assert.Equal(t, 1, books.OutboundRefs)
	assert.Equal(t, 0, books.InboundRefs)

	authors, ok := summary.Tables["authors"]
	require.True(t, ok)
	assert.Equal(t, 1, authors.InboundRefs)
	assert.Equal(t, 0, authors.OutboundRefs)
}
