package types

import "fmt"

// ImportMode controls how imported rows combine with existing rows.
type ImportMode string

// Import modes. Merge currently appends; it does not upsert by key.
const (
	ImportReplace ImportMode = "replace"
	ImportAppend  ImportMode = "append"
	ImportMerge   ImportMode = "merge"
)

// ParseImportMode resolves an import mode name.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case ImportReplace, ImportAppend, ImportMerge:
		return ImportMode(s), nil
	}
	return "", fmt.Errorf("%w: import mode %q", ErrInvalidData, s)
}

// Table is the columnar import/export shape: rows of typed cells under
// named columns. Each row in Rows has one cell per column.
type Table struct {
	Columns []ColumnDefinition
	Rows    [][]Value
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// RowData converts the table into RowData values. Short rows are padded
// with Null; a row longer than the column list is a DataError.
func (t *Table) RowData() ([]RowData, error) {
	out := make([]RowData, 0, len(t.Rows))
	for i, cells := range t.Rows {
		if len(cells) > len(t.Columns) {
			return nil, &DataError{Position: i, Err: fmt.Errorf("%w: %d cells for %d columns", ErrInvalidData, len(cells), len(t.Columns))}
		}
		d := RowData{keys: make([]string, 0, len(t.Columns)), vals: make(map[string]Value, len(t.Columns))}
		for j, col := range t.Columns {
			v := Null
			if j < len(cells) {
				v = cells[j]
			}
			d.Set(col.Name, v)
		}
		out = append(out, d)
	}
	return out, nil
}

// TableFromRows builds a columnar table from rows. Column order follows
// the given definitions, or first appearance across rows when cols is nil.
// Derived columns are typed by their first non-null value.
func TableFromRows(rows []Row, cols []ColumnDefinition) *Table {
	if cols == nil {
		seen := make(map[string]int)
		for _, r := range rows {
			for _, k := range r.Data.Keys() {
				i, ok := seen[k]
				if !ok {
					i = len(cols)
					seen[k] = i
					cols = append(cols, NewColumn(k, ""))
				}
				if v := r.Data.Value(k); cols[i].Type == "" && !v.IsNull() {
					cols[i].Type = ColumnTypeOf(v.Kind())
				}
			}
		}
		for i := range cols {
			if cols[i].Type == "" {
				cols[i].Type = ColumnText
			}
		}
	}
	t := &Table{Columns: cols, Rows: make([][]Value, len(rows))}
	for i, r := range rows {
		cells := make([]Value, len(cols))
		for j, c := range cols {
			cells[j] = r.Data.Value(c.Name)
		}
		t.Rows[i] = cells
	}
	return t
}

// DictionariesToRowData converts string-keyed dictionaries, the second
// accepted import shape.
func DictionariesToRowData(dicts []map[string]any) []RowData {
	out := make([]RowData, len(dicts))
	for i, m := range dicts {
		out[i] = RowDataFromMap(m, nil)
	}
	return out
}

// StreamOptions scopes a streaming read.
type StreamOptions struct {
	OnlyFiltered bool
	OnlyChecked  bool
	BatchSize    int // Zero uses the store's configured stream batch size.
}
