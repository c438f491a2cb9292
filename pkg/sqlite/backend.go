// Package sqlite provides the public API for loading SQLite query results
// into a grid. The driver is modernc.org/sqlite (pure Go, no cgo); the
// conversion details stay internal.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/rowgrid/internal/adapters/sqlsource"
	"github.com/mesh-intelligence/rowgrid/pkg/grid"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Open opens the database at path. Use ":memory:" for a private
// in-memory database.
func Open(path string, readOnly bool) (*sql.DB, error) {
	return sqlsource.Open(path, readOnly)
}

// QueryTable runs query and returns the result set as a columnar table.
func QueryTable(ctx context.Context, db *sql.DB, query string, args ...any) (*types.Table, error) {
	return sqlsource.Query(ctx, db, query, args...)
}

// Load runs query against db and imports the result into g.
//
// Example:
//
//	db, err := sqlite.Open("shop.db", true)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	res := sqlite.Load(ctx, g, db, types.ImportReplace, "SELECT * FROM orders")
func Load(ctx context.Context, g *grid.Grid, db *sql.DB, mode types.ImportMode, query string, args ...any) types.OperationResult {
	t, err := sqlsource.Query(ctx, db, query, args...)
	if err != nil {
		return types.OperationResult{Err: err, Messages: []string{err.Error()}}
	}
	return g.Import(ctx, t, mode)
}
