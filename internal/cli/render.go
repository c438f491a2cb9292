package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mesh-intelligence/rowgrid/internal/adapters/csvsource"
	"github.com/mesh-intelligence/rowgrid/internal/adapters/jsonlsource"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// render writes t to w in the named format.
func render(w io.Writer, t *types.Table, format string) error {
	switch format {
	case "json":
		return renderJSON(w, t)
	case "csv":
		return csvsource.Write(w, t)
	case "jsonl":
		rows, err := t.RowData()
		if err != nil {
			return err
		}
		return jsonlsource.Write(w, rows)
	case "table", "":
		return renderTable(w, t)
	default:
		return userError("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, t *types.Table) error {
	if len(t.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	tw.AppendHeader(header)

	for _, cells := range t.Rows {
		row := make(table.Row, len(t.Columns))
		for i := range row {
			row[i] = "NULL"
			if i < len(cells) && !cells[i].IsNull() {
				row[i] = cells[i].String()
			}
		}
		tw.AppendRow(row)
	}

	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(t.Rows))
	return nil
}

// renderJSON writes one object per row in column order.
func renderJSON(w io.Writer, t *types.Table) error {
	out := make([]map[string]any, len(t.Rows))
	for r, cells := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			var v any
			if i < len(cells) {
				v = cells[i].Interface()
			}
			m[c.Name] = v
		}
		out[r] = m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
