package query

import (
	"slices"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// SortabilitySample is how many leading rows InferSortable inspects.
const SortabilitySample = 100

// CompareRows orders two rows by the sort keys. The first non-zero key
// comparison decides, with that key's direction applied.
func CompareRows(a, b types.RowData, keys []types.SortKey) int {
	for _, k := range keys {
		c := Compare(a.Value(k.Column), b.Value(k.Column))
		if c == 0 {
			continue
		}
		if k.Direction == types.Descending {
			return -c
		}
		return c
	}
	return 0
}

// SortRows stably sorts rows in place. Rows equal on every key keep their
// relative order.
func SortRows(rows []types.Row, keys []types.SortKey) {
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b types.Row) int {
		return CompareRows(a.Data, b.Data, keys)
	})
}

// SortedOrder returns the positions of data in stable sorted order
// without moving data.
func SortedOrder(data []types.RowData, keys []types.SortKey) []int {
	order := make([]int, len(data))
	for i := range order {
		order[i] = i
	}
	if len(keys) == 0 {
		return order
	}
	slices.SortStableFunc(order, func(i, j int) int {
		return CompareRows(data[i], data[j], keys)
	})
	return order
}

// InferSortable samples the first SortabilitySample rows for a column and
// reports whether every non-null value is orderable against the others.
// A column with only nulls in the sample is sortable.
func InferSortable(rows []types.RowData, column string) bool {
	n := min(len(rows), SortabilitySample)
	var kind types.Kind
	mixed := false
	var sampled []types.Value
	for i := range n {
		v := rows[i].Value(column)
		if v.IsNull() {
			continue
		}
		if !Orderable(v) {
			return false
		}
		if len(sampled) == 0 {
			kind = v.Kind()
		} else if v.Kind() != kind {
			mixed = true
		}
		sampled = append(sampled, v)
	}
	if !mixed {
		return true
	}
	return allCoerce(sampled, func(v types.Value) bool { _, ok := AsNumber(v); return ok }) ||
		allCoerce(sampled, func(v types.Value) bool { _, ok := AsDateTime(v); return ok })
}

func allCoerce(vals []types.Value, ok func(types.Value) bool) bool {
	for _, v := range vals {
		if !ok(v) {
			return false
		}
	}
	return true
}
