package grid

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Import loads a columnar table. Replace discards existing rows and
// registers the table's columns; Append and Merge add to the end. The
// smart-operation invariants are restored afterwards.
func (g *Grid) Import(ctx context.Context, t *types.Table, mode types.ImportMode) types.OperationResult {
	return g.run(ctx, "import", func(ctx context.Context, res *types.OperationResult) error {
		if t == nil {
			return &types.OperationError{Op: "import", Err: types.ErrNilArgument}
		}
		rows, err := t.RowData()
		if err != nil {
			return err
		}
		return g.importRows(ctx, res, rows, t.Columns, mode)
	})
}

// ImportDictionaries loads string-keyed records. Column order follows the
// sorted keys of each record.
func (g *Grid) ImportDictionaries(ctx context.Context, dicts []map[string]any, mode types.ImportMode) types.OperationResult {
	return g.run(ctx, "import", func(ctx context.Context, res *types.OperationResult) error {
		return g.importRows(ctx, res, types.DictionariesToRowData(dicts), nil, mode)
	})
}

// ImportRows loads rows that are already in RowData form.
func (g *Grid) ImportRows(ctx context.Context, rows []types.RowData, mode types.ImportMode) types.OperationResult {
	return g.run(ctx, "import", func(ctx context.Context, res *types.OperationResult) error {
		return g.importRows(ctx, res, rows, nil, mode)
	})
}

func (g *Grid) importRows(ctx context.Context, res *types.OperationResult, rows []types.RowData, cols []types.ColumnDefinition, mode types.ImportMode) error {
	res.Change = newChange(types.ChangeImport)
	if cols != nil {
		normalized := make([]types.ColumnDefinition, len(cols))
		for i, c := range cols {
			if err := c.Validate(); err != nil {
				return err
			}
			normalized[i] = c.WithDefaults()
		}
		cols = normalized
	}
	switch mode {
	case types.ImportReplace:
		ids, err := g.store.ReplaceAllRows(ctx, rows)
		if err != nil {
			return err
		}
		if cols != nil {
			if err := g.store.ResetColumns(cols...); err != nil {
				return err
			}
		}
		res.Change.Inserted = ids
		res.Change.AffectedRows = len(ids)
		res.Change.AffectedColumns = len(cols)
		res.Change.RequiresFullReload = true
	case types.ImportAppend, types.ImportMerge:
		if cols != nil {
			if err := g.store.RegisterColumns(g.missingColumns(cols)...); err != nil {
				return err
			}
		}
		ids, err := g.store.AppendRows(ctx, rows)
		res.Change.Inserted = ids
		res.Change.AffectedRows = len(ids)
		if err != nil {
			return err
		}
	default:
		return &types.OperationError{Op: "import", Context: map[string]any{"mode": mode}, Err: types.ErrInvalidData}
	}
	res.Messages = append(res.Messages, fmt.Sprintf("imported %d rows (%s)", len(rows), mode))
	d, err := g.smart.EnsureMinRowsAndLastEmpty(ctx)
	return absorb(res, types.ChangeImport, d, err)
}

// missingColumns returns the definitions in cols not yet registered.
func (g *Grid) missingColumns(cols []types.ColumnDefinition) []types.ColumnDefinition {
	var out []types.ColumnDefinition
	for _, c := range cols {
		if _, ok, err := g.store.Column(c.Name); err == nil && !ok {
			out = append(out, c)
		}
	}
	return out
}

// Export returns the rows of a scope as a columnar table. Registered
// columns set the column order. Without any, columns follow first
// appearance and their sortability is inferred from the leading rows.
func (g *Grid) Export(ctx context.Context, onlyFiltered bool) (*types.Table, error) {
	rows, err := g.store.GetAllRows(ctx, onlyFiltered)
	if err != nil {
		return nil, err
	}
	cols, err := g.store.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		return types.TableFromRows(rows, cols), nil
	}
	t := types.TableFromRows(rows, nil)
	data := make([]types.RowData, len(rows))
	for i, r := range rows {
		data[i] = r.Data
	}
	for i := range t.Columns {
		t.Columns[i].Sortable = query.InferSortable(data, t.Columns[i].Name)
	}
	return t, nil
}

// ExportDictionaries returns the rows of a scope as string-keyed records.
func (g *Grid) ExportDictionaries(ctx context.Context, onlyFiltered bool) ([]map[string]any, error) {
	rows, err := g.store.GetAllRows(ctx, onlyFiltered)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Data.Map()
	}
	return out, nil
}

// AddRows appends rows under the smart-operation policy.
func (g *Grid) AddRows(ctx context.Context, data []types.RowData) types.OperationResult {
	return g.run(ctx, "add_rows", func(ctx context.Context, res *types.OperationResult) error {
		d, err := g.smart.SmartAddRows(ctx, data)
		return absorb(res, types.ChangeAdd, d, err)
	})
}

// InsertRows inserts rows at a position in the unfiltered order.
func (g *Grid) InsertRows(ctx context.Context, data []types.RowData, at int) types.OperationResult {
	return g.run(ctx, "insert_rows", func(ctx context.Context, res *types.OperationResult) error {
		ids, err := g.store.InsertRows(ctx, data, at)
		if err != nil {
			return err
		}
		res.Change = newChange(types.ChangeInsert)
		res.Change.Inserted = ids
		res.Change.AffectedRows = len(ids)
		d, err := g.smart.EnsureMinRowsAndLastEmpty(ctx)
		return absorb(res, types.ChangeInsert, d, err)
	})
}

// DeleteRows deletes rows by position in the chosen scope under the
// smart-operation policy: rows may be content-cleared instead of removed
// to honor the minimum row count.
func (g *Grid) DeleteRows(ctx context.Context, indexes []int, onlyFiltered bool) types.OperationResult {
	return g.run(ctx, "delete_rows", func(ctx context.Context, res *types.OperationResult) error {
		d, err := g.smart.SmartDeleteRows(ctx, indexes, onlyFiltered)
		return absorb(res, types.ChangeDelete, d, err)
	})
}

// DeleteRowsByID is DeleteRows addressed by RowID.
func (g *Grid) DeleteRowsByID(ctx context.Context, ids []types.RowID) types.OperationResult {
	return g.run(ctx, "delete_rows", func(ctx context.Context, res *types.OperationResult) error {
		d, err := g.smart.SmartDeleteRowsByID(ctx, ids)
		return absorb(res, types.ChangeDelete, d, err)
	})
}

// UpdateCell sets one cell. Typing into the trailing empty row expands
// the grid when auto-expand is on. An unknown row is a *types.DataError.
func (g *Grid) UpdateCell(ctx context.Context, id types.RowID, column string, v types.Value) types.OperationResult {
	return g.run(ctx, "update_cell", func(ctx context.Context, res *types.OperationResult) error {
		if column == "" {
			return &types.DataError{Position: -1, RowID: id, Err: types.ErrInvalidColumn}
		}
		ok, err := g.store.SetCell(ctx, id, column, v)
		if err != nil {
			return err
		}
		if !ok {
			return &types.DataError{Position: -1, RowID: id, Column: column, Err: types.ErrInvalidID}
		}
		res.Change = newChange(types.ChangeUpdate)
		res.Change.Updated = []types.RowID{id}
		res.Change.AffectedRows = 1
		res.Change.AffectedColumns = 1
		d, err := g.smart.AutoExpandEmptyRow(ctx)
		return absorb(res, types.ChangeUpdate, d, err)
	})
}

// ClearAll removes every row, then restores the minimum-row invariants.
func (g *Grid) ClearAll(ctx context.Context) types.OperationResult {
	return g.run(ctx, "clear_all", func(ctx context.Context, res *types.OperationResult) error {
		if err := g.store.ClearAll(ctx); err != nil {
			return err
		}
		res.Change = newChange(types.ChangeClear)
		res.Change.RequiresFullReload = true
		d, err := g.smart.EnsureMinRowsAndLastEmpty(ctx)
		return absorb(res, types.ChangeClear, d, err)
	})
}

// EnsureInvariants applies the minimum-row and trailing-empty policy
// without any other change.
func (g *Grid) EnsureInvariants(ctx context.Context) types.OperationResult {
	return g.run(ctx, "ensure_invariants", func(ctx context.Context, res *types.OperationResult) error {
		d, err := g.smart.EnsureMinRowsAndLastEmpty(ctx)
		return absorb(res, types.ChangeAdd, d, err)
	})
}
