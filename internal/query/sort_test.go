package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

func rowsOf(col string, vals ...any) []types.Row {
	out := make([]types.Row, len(vals))
	for i, v := range vals {
		out[i] = types.Row{ID: types.RowID(i + 1), Data: types.NewRowData(types.F(col, v))}
	}
	return out
}

func column(rows []types.Row, col string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.Data.Value(col).Interface()
	}
	return out
}

func TestSortRowsAscendingDescending(t *testing.T) {
	rows := rowsOf("V", 3, 1, 2)
	SortRows(rows, []types.SortKey{{Column: "V"}})
	assert.Equal(t, []any{1.0, 2.0, 3.0}, column(rows, "V"))

	SortRows(rows, []types.SortKey{{Column: "V", Direction: types.Descending}})
	assert.Equal(t, []any{3.0, 2.0, 1.0}, column(rows, "V"))
}

func TestSortRowsStableUnderTies(t *testing.T) {
	rows := []types.Row{
		{ID: 1, Data: types.NewRowData(types.F("K", "b"), types.F("N", 1))},
		{ID: 2, Data: types.NewRowData(types.F("K", "a"), types.F("N", 2))},
		{ID: 3, Data: types.NewRowData(types.F("K", "b"), types.F("N", 3))},
		{ID: 4, Data: types.NewRowData(types.F("K", "a"), types.F("N", 4))},
	}
	SortRows(rows, []types.SortKey{{Column: "K"}})

	ids := []types.RowID{rows[0].ID, rows[1].ID, rows[2].ID, rows[3].ID}
	assert.Equal(t, []types.RowID{2, 4, 1, 3}, ids)
}

func TestSortRowsMultiKey(t *testing.T) {
	rows := []types.Row{
		{ID: 1, Data: types.NewRowData(types.F("G", "x"), types.F("V", 1))},
		{ID: 2, Data: types.NewRowData(types.F("G", "y"), types.F("V", 5))},
		{ID: 3, Data: types.NewRowData(types.F("G", "x"), types.F("V", 9))},
	}
	SortRows(rows, []types.SortKey{{Column: "G"}, {Column: "V", Direction: types.Descending}})
	assert.Equal(t, []types.RowID{3, 1, 2}, []types.RowID{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestCompareCoercion(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b types.Value
		want int
	}{
		{"null first", types.Null, types.Int(1), -1},
		{"nulls equal", types.Null, types.Null, 0},
		{"numbers", types.Int(2), types.Int(10), -1},
		{"text vs number coerces", types.Text("10"), types.Int(9), 1},
		{"text vs date coerces", types.Text("2024-01-01"), types.DateTime(day), -1},
		{"text case insensitive", types.Text("apple"), types.Text("Banana"), -1},
		{"bool", types.Bool(false), types.Bool(true), -1},
		{"fallback to string", types.Text("abc"), types.Int(5), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestInferSortable(t *testing.T) {
	data := func(vals ...any) []types.RowData {
		out := make([]types.RowData, len(vals))
		for i, v := range vals {
			out[i] = types.NewRowData(types.F("C", v))
		}
		return out
	}

	assert.True(t, InferSortable(data(1, 2, nil, 3), "C"))
	assert.True(t, InferSortable(data("a", "b"), "C"))
	assert.True(t, InferSortable(data(1, "2", 3.5), "C"), "mixed but numerically coercible")
	assert.False(t, InferSortable(data(1, "two"), "C"))
	assert.False(t, InferSortable(data(struct{}{}), "C"))
	assert.True(t, InferSortable(data(nil, nil), "C"))
}

func TestSortedOrderLeavesDataInPlace(t *testing.T) {
	data := []types.RowData{
		types.NewRowData(types.F("V", 3)),
		types.NewRowData(types.F("V", 1)),
		types.NewRowData(types.F("V", 2)),
	}
	assert.Equal(t, []int{1, 2, 0}, SortedOrder(data, []types.SortKey{{Column: "V"}}))
	assert.Equal(t, 3.0, data[0].Value("V").Interface())
}
