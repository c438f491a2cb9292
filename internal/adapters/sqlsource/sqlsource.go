// Package sqlsource reads database/sql result sets into columnar tables
// for import. SQLite databases are opened with the pure-Go modernc driver.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Open opens a SQLite database. When readOnly is set the file is opened
// with mode=ro so an import can never write to its source.
func Open(path string, readOnly bool) (*sql.DB, error) {
	dsn := path
	if readOnly && path != ":memory:" {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}

// Query runs query against db and reads the full result.
func Query(ctx context.Context, db *sql.DB, query string, args ...any) (*types.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.OperationError{Op: "sql_query", Context: map[string]any{"query": query}, Err: err}
	}
	defer func() { _ = rows.Close() }()
	return ReadRows(ctx, rows)
}

// ReadRows drains rows into a table. Column types follow the driver's
// declared type names; cells are converted to Values, with []byte read as
// text and integers in BOOLEAN columns read as booleans. The context is
// checked between rows.
func ReadRows(ctx context.Context, rows *sql.Rows) (*types.Table, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	t := &types.Table{Columns: make([]types.ColumnDefinition, len(cts))}
	for i, ct := range cts {
		t.Columns[i] = types.NewColumn(ct.Name(), ColumnType(ct.DatabaseTypeName()))
	}

	values := make([]any, len(cts))
	ptrs := make([]any, len(cts))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		cells := make([]types.Value, len(values))
		for i, v := range values {
			cells[i] = convert(v, t.Columns[i].Type)
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ColumnType maps a SQL declared type name to a column type.
func ColumnType(dbType string) types.ColumnType {
	t := strings.ToUpper(dbType)
	switch {
	case strings.Contains(t, "BOOL"):
		return types.ColumnBool
	case strings.Contains(t, "INT"), strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"),
		strings.Contains(t, "DOUB"), strings.Contains(t, "NUM"), strings.Contains(t, "DEC"):
		return types.ColumnNumber
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return types.ColumnDateTime
	case strings.Contains(t, "BLOB"), strings.Contains(t, "JSON"):
		return types.ColumnObject
	default:
		return types.ColumnText
	}
}

func convert(v any, col types.ColumnType) types.Value {
	switch x := v.(type) {
	case []byte:
		return types.Text(string(x))
	case int64:
		if col == types.ColumnBool {
			return types.Bool(x != 0)
		}
	}
	return types.ValueOf(v)
}
