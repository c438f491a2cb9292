package types

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// RowID is the stable identity of a row. IDs are assigned from a monotonic
// counter at creation, never reused, and order rows by creation. The zero
// RowID is invalid.
type RowID uint64

// String renders the ID as 16 zero-padded hex digits so that string order
// matches creation order.
func (id RowID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Valid reports whether id was issued by a generator.
func (id RowID) Valid() bool { return id != 0 }

// ParseRowID parses the String form of a RowID.
func ParseRowID(s string) (RowID, error) {
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil || n == 0 {
		return 0, ErrInvalidID
	}
	return RowID(n), nil
}

// RowData is an ordered mapping from column name to Value. Field order is
// insertion order; setting an existing field keeps its position.
type RowData struct {
	keys []string
	vals map[string]Value
}

// Field is a name/value pair used to build RowData.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for a Field built from a dynamic Go value.
// Example: NewRowData(F("ID", 1), F("Name", "Apple"))
func F(name string, v any) Field {
	return Field{Name: name, Value: ValueOf(v)}
}

// NewRowData builds RowData from fields in order.
func NewRowData(fields ...Field) RowData {
	d := RowData{vals: make(map[string]Value, len(fields))}
	for _, f := range fields {
		d.Set(f.Name, f.Value)
	}
	return d
}

// RowDataFromMap builds RowData from a dictionary. Keys are taken in the
// order given by keys when provided, otherwise in map iteration order
// sorted lexically.
func RowDataFromMap(m map[string]any, keys []string) RowData {
	if len(keys) == 0 {
		keys = sortedKeys(m)
	}
	d := RowData{vals: make(map[string]Value, len(m))}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			d.Set(k, ValueOf(v))
		}
	}
	for _, k := range sortedKeys(m) {
		if _, ok := d.vals[k]; !ok {
			d.Set(k, ValueOf(m[k]))
		}
	}
	return d
}

// Get returns the value of a field and whether it exists.
func (d RowData) Get(name string) (Value, bool) {
	v, ok := d.vals[name]
	return v, ok
}

// Value returns the value of a field, Null if absent.
func (d RowData) Value(name string) Value {
	return d.vals[name]
}

// Set assigns a field, appending it if new.
func (d *RowData) Set(name string, v Value) {
	if d.vals == nil {
		d.vals = make(map[string]Value)
	}
	if _, ok := d.vals[name]; !ok {
		d.keys = append(d.keys, name)
	}
	d.vals[name] = v
}

// Keys returns field names in order. The slice must not be modified.
func (d RowData) Keys() []string { return d.keys }

// Len returns the number of fields.
func (d RowData) Len() int { return len(d.keys) }

// IsBlank reports whether every field is null or whitespace. A row with no
// fields is blank.
func (d RowData) IsBlank() bool {
	for _, k := range d.keys {
		if !d.vals[k].IsBlank() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the field list.
func (d RowData) Clone() RowData {
	c := RowData{
		keys: make([]string, len(d.keys)),
		vals: make(map[string]Value, len(d.vals)),
	}
	copy(c.keys, d.keys)
	for k, v := range d.vals {
		c.vals[k] = v
	}
	return c
}

// Blanked returns a copy with the same field names and every value Null.
func (d RowData) Blanked() RowData {
	c := RowData{
		keys: make([]string, len(d.keys)),
		vals: make(map[string]Value, len(d.keys)),
	}
	copy(c.keys, d.keys)
	for _, k := range d.keys {
		c.vals[k] = Null
	}
	return c
}

// Map returns the fields as a dictionary of plain Go values.
func (d RowData) Map() map[string]any {
	m := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		m[k] = d.vals[k].Interface()
	}
	return m
}

// Row is a snapshot of one stored row.
type Row struct {
	ID   RowID
	Data RowData
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
