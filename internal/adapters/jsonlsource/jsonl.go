// Package jsonlsource reads and writes rows as JSON Lines: one object per
// line, field order preserved. Writes are atomic (temp file, fsync,
// rename).
package jsonlsource

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// maxLine bounds a single JSONL record.
const maxLine = 4 << 20

// ReadFile reads a JSONL file. See Read.
func ReadFile(path string) ([]types.RowData, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	rows, skipped, err := Read(f)
	if err != nil {
		return nil, skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, skipped, nil
}

// Read decodes one object per line. Blank lines are ignored; lines that
// are not JSON objects are skipped and counted.
func Read(r io.Reader) ([]types.RowData, int, error) {
	var (
		rows    []types.RowData
		skipped int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		d, err := decodeObject(line)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scanning: %w", err)
	}
	return rows, skipped, nil
}

// decodeObject walks the top-level object token by token so field order
// survives. Nested values are kept whole as opaque values.
func decodeObject(line []byte) (types.RowData, error) {
	var d types.RowData
	if !json.Valid(line) {
		return d, types.ErrInvalidData
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return d, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return d, types.ErrInvalidData
	}
	d = types.NewRowData()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return d, err
		}
		key, ok := tok.(string)
		if !ok {
			return d, types.ErrInvalidData
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return d, err
		}
		d.Set(key, valueOf(raw))
	}
	return d, nil
}

func valueOf(raw any) types.Value {
	switch x := raw.(type) {
	case json.Number:
		if n, err := x.Float64(); err == nil {
			return types.Number(n)
		}
		return types.Text(x.String())
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return types.DateTime(t)
		}
		return types.Text(x)
	default:
		return types.ValueOf(x)
	}
}

// Write encodes each row as one JSON object per line.
func Write(w io.Writer, rows []types.RowData) error {
	bw := bufio.NewWriter(w)
	for i, d := range rows {
		line, err := encodeObject(d)
		if err != nil {
			return &types.DataError{Position: i, Err: err}
		}
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return bw.Flush()
}

func encodeObject(d types.RowData) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(d.Value(k).Interface())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteFile writes rows to path atomically using the temp-file, fsync,
// rename pattern.
func WriteFile(path string, rows []types.RowData) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := Write(tmp, rows); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
