package grid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowgrid/internal/notify"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

func newGrid(t *testing.T, mutate func(*types.Config), opts ...Option) *Grid {
	t.Helper()
	cfg := types.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func fruitTable() *types.Table {
	return &types.Table{
		Columns: []types.ColumnDefinition{
			types.NewColumn("ID", types.ColumnNumber),
			types.NewColumn("Name", types.ColumnText),
		},
		Rows: [][]types.Value{
			{types.Int(1), types.Text("Apple")},
			{types.Int(2), types.Text("Banana")},
			{types.Int(3), types.Text("Cherry")},
		},
	}
}

func named(names ...string) []types.RowData {
	rows := make([]types.RowData, len(names))
	for i, n := range names {
		rows[i] = types.NewRowData(types.F("Name", n))
	}
	return rows
}

func rowNames(t *testing.T, g *Grid, onlyFiltered bool) []string {
	t.Helper()
	rows, err := g.Store().GetAllRows(context.Background(), onlyFiltered)
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Data.Value("Name").String()
	}
	return out
}

func smart(min int) func(*types.Config) {
	return func(c *types.Config) {
		c.Smart = types.SmartConfig{Enabled: true, MinimumRows: min, AlwaysKeepLastEmpty: true}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Notify.Mode = "bogus"
	_, err := New(cfg)
	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "notify.mode", ce.Field)
}

func TestGrid_ReplaceWithNoRowsHonorsMinimum(t *testing.T) {
	g := newGrid(t, smart(50))

	res := g.ImportRows(context.Background(), nil, types.ImportReplace)
	require.True(t, res.Success, res.Messages)

	n, err := g.Store().GetRowCount(false)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	rows, err := g.Store().GetAllRows(context.Background(), false)
	require.NoError(t, err)
	for _, r := range rows {
		assert.True(t, r.Data.IsBlank())
	}
	assert.Len(t, res.Delta.Synthesized, 50)
	assert.True(t, res.Change.RequiresFullReload)
}

func TestGrid_ImportModes(t *testing.T) {
	tests := []struct {
		name string
		mode types.ImportMode
		want []string
	}{
		{name: "replace discards existing rows", mode: types.ImportReplace, want: []string{"Apple", "Banana", "Cherry"}},
		{name: "append adds to the end", mode: types.ImportAppend, want: []string{"Old", "Apple", "Banana", "Cherry"}},
		{name: "merge appends", mode: types.ImportMerge, want: []string{"Old", "Apple", "Banana", "Cherry"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGrid(t, nil)
			ctx := context.Background()
			require.True(t, g.AddRows(ctx, named("Old")).Success)

			res := g.Import(ctx, fruitTable(), tt.mode)
			require.True(t, res.Success, res.Messages)
			assert.Equal(t, tt.want, rowNames(t, g, false))
			assert.Len(t, res.Change.Inserted, 3)
			assert.Equal(t, types.ChangeImport, res.Change.Kind)
		})
	}

	t.Run("unknown mode fails", func(t *testing.T) {
		g := newGrid(t, nil)
		res := g.Import(context.Background(), fruitTable(), "upsert")
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, types.ErrInvalidData)
	})

	t.Run("nil table fails", func(t *testing.T) {
		g := newGrid(t, nil)
		res := g.Import(context.Background(), nil, types.ImportAppend)
		assert.ErrorIs(t, res.Err, types.ErrNilArgument)
	})
}

func TestGrid_ImportDictionariesAndExport(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	res := g.ImportDictionaries(ctx, []map[string]any{
		{"Name": "Apple", "Price": 1.25},
		{"Name": "Banana", "Price": 0.5},
	}, types.ImportReplace)
	require.True(t, res.Success, res.Messages)

	out, err := g.ExportDictionaries(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"Name": "Apple", "Price": 1.25},
		{"Name": "Banana", "Price": 0.5},
	}, out)

	table, err := g.Export(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Price"}, table.ColumnNames())
	assert.Equal(t, types.Number(0.5), table.Rows[1][1])
}

func TestGrid_ExportReimportKeepsQueryable(t *testing.T) {
	src := newGrid(t, nil)
	ctx := context.Background()
	require.True(t, src.ImportDictionaries(ctx, []map[string]any{
		{"ID": 1, "Name": "Apple"},
		{"ID": 3, "Name": "Cherry"},
		{"ID": 2, "Name": "Banana"},
	}, types.ImportReplace).Success)

	table, err := src.Export(ctx, false)
	require.NoError(t, err)
	require.Len(t, table.Columns, 2)
	for _, c := range table.Columns {
		assert.True(t, c.Sortable, c.Name)
		assert.True(t, c.Filterable, c.Name)
	}
	assert.Equal(t, types.ColumnNumber, table.Columns[0].Type)
	assert.Equal(t, types.ColumnText, table.Columns[1].Type)

	dst := newGrid(t, nil)
	require.True(t, dst.Import(ctx, table, types.ImportReplace).Success)

	res := dst.ApplyFilters(ctx, []types.FilterCriteria{{Column: "ID", Operator: types.OpGreater, Value: types.Int(1)}})
	require.True(t, res.Success, res.Messages)
	res = dst.Sort(ctx, []types.SortKey{{Column: "ID", Direction: types.Descending}})
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, []string{"Cherry", "Banana"}, rowNames(t, dst, true))
}

func TestGrid_ExportInfersUnsortableColumn(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	require.True(t, g.ImportRows(ctx, []types.RowData{
		types.NewRowData(types.F("Tag", "a"), types.F("Meta", types.Opaque(struct{}{}))),
	}, types.ImportReplace).Success)

	table, err := g.Export(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Tag", "Meta"}, table.ColumnNames())
	assert.True(t, table.Columns[0].Sortable)
	assert.False(t, table.Columns[1].Sortable)
	assert.Equal(t, types.ColumnObject, table.Columns[1].Type)
}

func TestGrid_ImportTreatsBareColumnsAsConfigurable(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	table := &types.Table{
		Columns: []types.ColumnDefinition{{Name: "N"}},
		Rows:    [][]types.Value{{types.Int(2)}, {types.Int(1)}},
	}
	require.True(t, g.Import(ctx, table, types.ImportReplace).Success)

	col, ok, err := g.Store().Column("N")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, col.Sortable)
	assert.True(t, col.Filterable)
	assert.True(t, col.Visible)
}

func TestGrid_CancelledReplaceKeepsColumns(t *testing.T) {
	g := newGrid(t, nil)
	require.True(t, g.Import(context.Background(), fruitTable(), types.ImportReplace).Success)
	before, err := g.Store().Columns()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	other := &types.Table{
		Columns: []types.ColumnDefinition{types.NewColumn("Other", types.ColumnText)},
		Rows:    [][]types.Value{{types.Text("x")}},
	}
	res := g.Import(ctx, other, types.ImportReplace)
	require.True(t, res.Cancelled)

	after, err := g.Store().Columns()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, rowNames(t, g, false))
}

func TestGrid_ApplyFiltersPartialSuccess(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	require.True(t, g.Import(ctx, fruitTable(), types.ImportReplace).Success)

	res := g.ApplyFilters(ctx, []types.FilterCriteria{
		{Column: "ID", Operator: types.OpGreater, Value: types.Int(0)},
		{Column: "Name", Operator: types.OpIsNotEmpty},
		{Column: "Missing", Operator: types.OpEquals, Value: types.Text("x")},
		{Column: "Name", Operator: types.OpContains, Value: types.Text("a")},
		{Column: "Name", Operator: "bogus"},
	})

	assert.False(t, res.Success)
	assert.False(t, res.Cancelled)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, "3 of 5 filters applied", res.Messages[0])
	assert.ErrorIs(t, res.Err, types.ErrInvalidFilter)

	assert.Equal(t, []string{"Apple", "Banana"}, rowNames(t, g, true))
	criteria, err := g.Store().GetFilterCriteria()
	require.NoError(t, err)
	assert.Len(t, criteria, 3)
	assert.True(t, res.Change.RequiresFullReload)
	assert.Equal(t, 2, res.Change.AffectedRows)

	cleared := g.ClearFilters(ctx)
	assert.True(t, cleared.Success)
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, rowNames(t, g, true))
}

func TestGrid_FilterThenExport(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	require.True(t, g.Import(ctx, fruitTable(), types.ImportReplace).Success)
	res := g.ApplyFilters(ctx, []types.FilterCriteria{{Column: "ID", Operator: types.OpGreater, Value: types.Int(1)}})
	require.True(t, res.Success, res.Messages)

	orig, ok, err := g.Store().MapFilteredIndexToOriginalIndex(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, orig)

	table, err := g.Export(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name"}, table.ColumnNames())
	assert.Equal(t, [][]types.Value{
		{types.Int(2), types.Text("Banana")},
		{types.Int(3), types.Text("Cherry")},
	}, table.Rows)
}

func TestGrid_SortAndSearch(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	require.True(t, g.AddRows(ctx, named("Cherry", "Apple", "Banana")).Success)

	res := g.Sort(ctx, []types.SortKey{{Column: "Name"}})
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, rowNames(t, g, false))
	assert.True(t, res.Change.RequiresFullReload)

	res = g.Sort(ctx, []types.SortKey{{Column: "Name", Direction: types.Descending}})
	require.True(t, res.Success)
	assert.Equal(t, []string{"Cherry", "Banana", "Apple"}, rowNames(t, g, false))

	results, sres := g.Search(ctx, types.SearchCriteria{Text: "Ban", Mode: types.ModeSubstring}, false)
	require.True(t, sres.Success, sres.Messages)
	require.Len(t, results, 1)
	assert.Equal(t, types.Text("Banana"), results[0].Value)
	assert.True(t, sres.Change.Empty(), "searching publishes nothing")
}

func TestGrid_DeleteRowsClearsBelowMinimum(t *testing.T) {
	g := newGrid(t, func(c *types.Config) {
		c.Smart = types.SmartConfig{Enabled: true, AutoDelete: true, MinimumRows: 3}
	})
	ctx := context.Background()
	added := g.AddRows(ctx, named("A", "B", "C", "D"))
	require.True(t, added.Success)
	ids := added.Delta.Added

	res := g.DeleteRows(ctx, []int{0, 1}, false)
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, []types.RowID{ids[0]}, res.Delta.Removed)
	assert.Equal(t, []types.RowID{ids[1]}, res.Delta.Cleared)
	assert.Equal(t, []string{"", "C", "D"}, rowNames(t, g, false))
	assert.Equal(t, []types.RowID{ids[0]}, res.Change.Deleted)
	assert.Equal(t, []types.RowID{ids[1]}, res.Change.Updated)

	res = g.DeleteRowsByID(ctx, []types.RowID{ids[3]})
	require.True(t, res.Success)
	assert.Equal(t, []string{"", "C", ""}, rowNames(t, g, false))
}

func TestGrid_InsertRows(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	require.True(t, g.AddRows(ctx, named("A", "C")).Success)

	res := g.InsertRows(ctx, named("B"), 1)
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, []string{"A", "B", "C"}, rowNames(t, g, false))
	assert.Len(t, res.Change.Inserted, 1)

	res = g.InsertRows(ctx, named("X"), 9)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, types.ErrInvalidIndex)
}

func TestGrid_UpdateCell(t *testing.T) {
	g := newGrid(t, func(c *types.Config) {
		c.Smart = types.SmartConfig{Enabled: true, AutoExpand: true}
	})
	ctx := context.Background()
	added := g.AddRows(ctx, named("A"))
	require.True(t, added.Success)
	id := added.Delta.Added[0]

	res := g.UpdateCell(ctx, id, "Name", types.Text("B"))
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, []string{"B", ""}, rowNames(t, g, false), "auto-expand appends an empty row")
	assert.Contains(t, res.Change.Updated, id)
	assert.Len(t, res.Delta.Synthesized, 1)

	res = g.UpdateCell(ctx, 9999, "Name", types.Text("x"))
	var de *types.DataError
	require.ErrorAs(t, res.Err, &de)
	assert.ErrorIs(t, res.Err, types.ErrInvalidID)

	res = g.UpdateCell(ctx, id, "", types.Text("x"))
	assert.ErrorIs(t, res.Err, types.ErrInvalidColumn)
}

func TestGrid_ClearAllRestoresMinimum(t *testing.T) {
	g := newGrid(t, smart(2))
	ctx := context.Background()
	require.True(t, g.AddRows(ctx, named("A", "B", "C")).Success)

	res := g.ClearAll(ctx)
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, []string{"", ""}, rowNames(t, g, false))
	assert.Equal(t, types.ChangeClear, res.Change.Kind)
	assert.True(t, res.Change.RequiresFullReload)
}

func TestGrid_Validation(t *testing.T) {
	g := newGrid(t, nil)
	ctx := context.Background()
	added := g.AddRows(ctx, named("A", "B"))
	ids := added.Delta.Added

	res := g.WriteValidationResults(ctx, []types.ValidationResult{
		{RowID: ids[0]},
		{RowID: ids[1], Errors: []types.ValidationError{{Column: "Name", Severity: types.SeverityError, Message: "bad"}}},
	})
	require.True(t, res.Success, res.Messages)
	assert.Equal(t, ids, res.Change.Updated)

	sum, err := g.Validation(false, false)
	require.NoError(t, err)
	assert.False(t, sum.AllValid)
	assert.True(t, sum.HasState)
	assert.Equal(t, 1, sum.InvalidAll)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, ids[1], sum.Errors[0].RowID)
}

func TestGrid_NotificationModes(t *testing.T) {
	t.Run("interactive forwards granular changes", func(t *testing.T) {
		sink := notify.NewChannelSink(0)
		ch, err := sink.Subscribe()
		require.NoError(t, err)
		g := newGrid(t, func(c *types.Config) { c.Notify.Mode = types.ModeInteractive }, WithSink(sink))

		res := g.AddRows(context.Background(), named("A", "B"))
		require.True(t, res.Success)
		assert.True(t, res.Notified)
		got := <-ch
		assert.Equal(t, types.ChangeAdd, got.Kind)
		assert.Equal(t, res.Delta.Added, got.Inserted)
		assert.False(t, got.RequiresFullReload)
	})

	t.Run("readonly waits for a refresh", func(t *testing.T) {
		sink := notify.NewChannelSink(0)
		ch, err := sink.Subscribe()
		require.NoError(t, err)
		g := newGrid(t, func(c *types.Config) { c.Notify.Mode = types.ModeReadonly }, WithSink(sink))

		res := g.AddRows(context.Background(), named("A"))
		require.True(t, res.Success)
		assert.False(t, res.Notified)
		assert.Equal(t, 1, g.Gate().Pending())
		assert.Len(t, ch, 0)

		assert.True(t, g.RequestRefresh(context.Background()))
		got := <-ch
		assert.True(t, got.RequiresFullReload)
	})

	t.Run("headless publishes nothing", func(t *testing.T) {
		g := newGrid(t, nil)
		res := g.AddRows(context.Background(), named("A"))
		assert.False(t, res.Notified)
		assert.False(t, g.RequestRefresh(context.Background()))
	})
}

func TestGrid_PanicBecomesCriticalError(t *testing.T) {
	g := newGrid(t, smart(1), WithTemplate(func() types.RowData { panic("template exploded") }))

	res := g.ImportRows(context.Background(), nil, types.ImportReplace)
	assert.False(t, res.Success)
	require.True(t, types.IsCritical(res.Err))
	require.NotEmpty(t, res.Messages)
	assert.Contains(t, res.Messages[len(res.Messages)-1], "template exploded")
}

func TestGrid_RunKeepsMessagesBeforePanic(t *testing.T) {
	g := newGrid(t, nil)

	res := g.run(context.Background(), "step", func(_ context.Context, res *types.OperationResult) error {
		res.Messages = append(res.Messages, "first")
		res.Change.AffectedRows = 3
		panic("boom")
	})

	var ce *types.CriticalError
	require.ErrorAs(t, res.Err, &ce)
	assert.Equal(t, "step", ce.Op)
	assert.False(t, res.Success)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "first", res.Messages[0])
	assert.Contains(t, res.Messages[1], "boom")
	assert.Zero(t, res.Change.AffectedRows)
}

func TestGrid_CancellationIsNotFailure(t *testing.T) {
	g := newGrid(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := g.AddRows(ctx, named("A"))
	assert.False(t, res.Success)
	assert.True(t, res.Cancelled)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, types.IsCritical(res.Err))
}

func TestGrid_ClosedGrid(t *testing.T) {
	g := newGrid(t, nil)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	res := g.AddRows(context.Background(), named("A"))
	var dae *types.DataAccessError
	require.ErrorAs(t, res.Err, &dae)
	assert.ErrorIs(t, res.Err, types.ErrStoreClosed)
}
