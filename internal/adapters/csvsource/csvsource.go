// Package csvsource converts between CSV and columnar tables. The first
// record is the header. Empty cells are null; column types are inferred
// from a sample of the data.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// InferSample is how many records are inspected to infer column types.
const InferSample = 100

// Options controls reading.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Raw keeps every cell as text instead of inferring column types.
	Raw bool
}

// Read parses CSV from r into a table. The context is checked between
// records.
func Read(ctx context.Context, r io.Reader, opts Options) (*types.Table, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &types.Table{}, nil
	}
	if err != nil {
		return nil, &types.DataError{Position: 0, Err: fmt.Errorf("%w: header: %v", types.ErrInvalidData, err)}
	}

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &types.DataError{Position: len(records) + 1, Err: fmt.Errorf("%w: %v", types.ErrInvalidData, err)}
		}
		if len(rec) > len(header) {
			return nil, &types.DataError{Position: len(records) + 1, Err: fmt.Errorf("%w: %d fields for %d columns", types.ErrInvalidData, len(rec), len(header))}
		}
		records = append(records, rec)
	}

	t := &types.Table{Columns: make([]types.ColumnDefinition, len(header))}
	for i, name := range header {
		typ := types.ColumnText
		if !opts.Raw {
			typ = inferType(records, i)
		}
		t.Columns[i] = types.NewColumn(strings.TrimSpace(name), typ)
	}
	t.Rows = make([][]types.Value, len(records))
	for r, rec := range records {
		cells := make([]types.Value, len(header))
		for i := range cells {
			if i < len(rec) {
				cells[i] = parseCell(rec[i], t.Columns[i].Type)
			}
		}
		t.Rows[r] = cells
	}
	return t, nil
}

// inferType picks the narrowest type every sampled non-empty cell parses
// as: bool, then number, then date-time, else text.
func inferType(records [][]string, col int) types.ColumnType {
	n := min(len(records), InferSample)
	isBool, isNum, isDate, seen := true, true, true, false
	for _, rec := range records[:n] {
		if col >= len(rec) || strings.TrimSpace(rec[col]) == "" {
			continue
		}
		seen = true
		v := types.Text(rec[col])
		if _, err := strconv.ParseBool(strings.TrimSpace(rec[col])); err != nil {
			isBool = false
		}
		if _, ok := query.AsNumber(v); !ok {
			isNum = false
		}
		if _, ok := query.AsDateTime(v); !ok {
			isDate = false
		}
	}
	switch {
	case !seen:
		return types.ColumnText
	case isBool && !isNum:
		return types.ColumnBool
	case isNum:
		return types.ColumnNumber
	case isDate:
		return types.ColumnDateTime
	default:
		return types.ColumnText
	}
}

func parseCell(s string, typ types.ColumnType) types.Value {
	if strings.TrimSpace(s) == "" {
		return types.Null
	}
	v := types.Text(s)
	switch typ {
	case types.ColumnBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return types.Bool(b)
		}
	case types.ColumnNumber:
		if n, ok := query.AsNumber(v); ok {
			return types.Number(n)
		}
	case types.ColumnDateTime:
		if d, ok := query.AsDateTime(v); ok {
			return types.DateTime(d)
		}
	}
	return v
}

// Write renders a table as CSV with a header record. Nulls are empty
// cells and date-times use RFC 3339.
func Write(w io.Writer, t *types.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v types.Value) string {
	if d, ok := v.AsDateTime(); ok {
		return d.Format(time.RFC3339)
	}
	return v.String()
}
