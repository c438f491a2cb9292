package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

func newStore(t *testing.T, mutate ...func(*types.Config)) *Store {
	t.Helper()
	cfg := types.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func data(fields ...types.Field) types.RowData { return types.NewRowData(fields...) }

func fruits() []types.RowData {
	return []types.RowData{
		data(types.F("ID", 1), types.F("Name", "Apple")),
		data(types.F("ID", 2), types.F("Name", "Banana")),
		data(types.F("ID", 3), types.F("Name", "Cherry")),
	}
}

// seed adds rows and returns their IDs in display order.
func seed(t *testing.T, s *Store, rows []types.RowData) []types.RowID {
	t.Helper()
	n, err := s.AddRows(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, len(rows), n)
	all, err := s.GetAllRows(context.Background(), false)
	require.NoError(t, err)
	ids := make([]types.RowID, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	return ids
}

func names(t *testing.T, rows []types.Row) []string {
	t.Helper()
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Data.Value("Name").String()
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Store.BatchSize = 0
	_, err := New(cfg)

	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "store.batch_size", ce.Field)
	assert.ErrorIs(t, err, types.ErrBatchSizeInvalid)

	cfg = types.DefaultConfig()
	cfg.Search.RegexTimeout = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, types.ErrTimeoutInvalid)
}

func TestStore_AddRowsAssignsIncreasingIDs(t *testing.T) {
	s := newStore(t, func(c *types.Config) { c.Store.BatchSize = 2 })
	ids := seed(t, s, fruits())

	require.Len(t, ids, 3)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}

	last, ok, err := s.GetLastRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids[2], last.ID)
	assert.Equal(t, "Cherry", last.Data.Value("Name").String())

	id, err := s.AddRow(context.Background(), data(types.F("Name", "Date")))
	require.NoError(t, err)
	assert.Greater(t, id, ids[2])
}

func TestStore_RowIDStableAcrossMutations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, fruits())

	inserted, err := s.InsertRows(ctx, []types.RowData{data(types.F("ID", 0), types.F("Name", "Apricot"))}, 0)
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Greater(t, inserted[0], ids[2], "inserted rows still get new, higher IDs")

	row, ok, err := s.GetRow(2, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids[1], row.ID)
	assert.Equal(t, "Banana", row.Data.Value("Name").String())

	removed, err := s.RemoveRowByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, removed)

	row, ok, err = s.GetRowByID(ids[2])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Cherry", row.Data.Value("Name").String())

	require.NoError(t, s.SortRows(ctx, []types.SortKey{{Column: "ID", Direction: types.Descending}}))
	all, err := s.GetAllRows(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cherry", "Banana", "Apricot"}, names(t, all))
	assert.Equal(t, []types.RowID{ids[2], ids[1], inserted[0]}, []types.RowID{all[0].ID, all[1].ID, all[2].ID})
}

func TestStore_InsertRowsOutOfRange(t *testing.T) {
	s := newStore(t)
	seed(t, s, fruits())

	for _, at := range []int{-1, 4} {
		_, err := s.InsertRows(context.Background(), []types.RowData{data(types.F("Name", "x"))}, at)
		var de *types.DataError
		require.ErrorAs(t, err, &de)
		assert.ErrorIs(t, err, types.ErrInvalidIndex)
		assert.Equal(t, at, de.Position)
	}

	ids, err := s.InsertRows(context.Background(), []types.RowData{data(types.F("Name", "End"))}, 3)
	require.NoError(t, err)
	last, _, _ := s.GetLastRow()
	assert.Equal(t, ids[0], last.ID)
}

func TestStore_PositionalAbsenceIsNotAnError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s, fruits())

	_, ok, err := s.GetRow(99, false)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.UpdateRow(ctx, -1, data(), false)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.RemoveRow(ctx, 3, false)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetRowByID(types.RowID(12345))
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.UpdateRowByID(ctx, types.RowID(12345), data())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RoundTripReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := data(types.F("ID", 7), types.F("Name", "Fig"), types.F("Ripe", true))
	id, err := s.AddRow(ctx, in)
	require.NoError(t, err)

	in.Set("Name", types.Text("mutated by caller"))
	row, ok, err := s.GetRowByID(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"ID", "Name", "Ripe"}, row.Data.Keys())
	assert.Equal(t, "Fig", row.Data.Value("Name").String())

	row.Data.Set("Name", types.Text("mutated by reader"))
	again, _, _ := s.GetRowByID(id)
	assert.Equal(t, "Fig", again.Data.Value("Name").String())
	assert.Equal(t, map[string]any{"ID": 7.0, "Name": "Fig", "Ripe": true}, again.Data.Map())
}

func TestStore_SetCell(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, fruits())

	ok, err := s.SetCell(ctx, ids[0], "Color", types.Text("red"))
	require.NoError(t, err)
	assert.True(t, ok)

	row, _, _ := s.GetRowByID(ids[0])
	assert.Equal(t, []string{"ID", "Name", "Color"}, row.Data.Keys())
	assert.Equal(t, "red", row.Data.Value("Color").String())

	_, err = s.SetCell(ctx, ids[0], "", types.Null)
	assert.ErrorIs(t, err, types.ErrInvalidColumn)

	ok, err = s.SetCell(ctx, types.RowID(999), "Color", types.Null)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RemoveRowsByID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, fruits())
	_, err := s.SetRowChecked(ids[2], true)
	require.NoError(t, err)

	n, err := s.RemoveRowsByID(ctx, []types.RowID{ids[0], ids[2], types.RowID(999)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.GetAllRows(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Banana"}, names(t, all))

	last, ok, err := s.GetLastRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids[1], last.ID, "last row recomputed after removing the highest ID")

	checked, err := s.CheckedCount()
	require.NoError(t, err)
	assert.Zero(t, checked)

	n, err = s.RemoveRowsByID(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RemoveRowPositional(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, fruits())
	require.NoError(t, s.SetFilterCriteria(ctx, []types.FilterCriteria{
		{Column: "ID", Operator: types.OpGreater, Value: types.Int(1)},
	}))

	ok, err := s.RemoveRow(ctx, 0, true)
	require.NoError(t, err)
	require.True(t, ok)

	_, exists, _ := s.GetRowByID(ids[1])
	assert.False(t, exists, "filtered index 0 was Banana")

	ok, err = s.UpdateRow(ctx, 0, data(types.F("ID", 3), types.F("Name", "Cranberry")), true)
	require.NoError(t, err)
	require.True(t, ok)
	row, _, _ := s.GetRowByID(ids[2])
	assert.Equal(t, "Cranberry", row.Data.Value("Name").String())
}

func TestStore_SortRowsRespectsRegistry(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s, fruits())

	id := types.NewColumn("ID", types.ColumnNumber)
	id.Sortable = false
	require.NoError(t, s.RegisterColumns(id, types.NewColumn("Name", types.ColumnText)))

	err := s.SortRows(ctx, []types.SortKey{{Column: "ID"}})
	assert.ErrorIs(t, err, types.ErrInvalidColumn)

	err = s.SortRows(ctx, []types.SortKey{{Column: "Missing"}})
	assert.ErrorIs(t, err, types.ErrInvalidColumn)

	require.NoError(t, s.SortRows(ctx, []types.SortKey{{Column: "Name", Direction: types.Descending}}))
	all, _ := s.GetAllRows(ctx, false)
	assert.Equal(t, []string{"Cherry", "Banana", "Apple"}, names(t, all))
}

func TestStore_ReplaceAllRows(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, fruits())
	_, _ = s.SetRowChecked(ids[0], true)
	require.NoError(t, s.WriteValidationResults(ctx, []types.ValidationResult{{RowID: ids[0]}}))
	require.NoError(t, s.SetFilterCriteria(ctx, []types.FilterCriteria{
		{Column: "ID", Operator: types.OpGreater, Value: types.Int(1)},
	}))

	newIDs, err := s.ReplaceAllRows(ctx, []types.RowData{
		data(types.F("ID", 5), types.F("Name", "Elder")),
		data(types.F("ID", 0), types.F("Name", "Zero")),
	})
	require.NoError(t, err)
	require.Len(t, newIDs, 2)
	assert.Greater(t, newIDs[0], ids[2], "IDs are never reused")

	n, _ := s.GetRowCount(false)
	assert.Equal(t, 2, n)
	n, _ = s.GetRowCount(true)
	assert.Equal(t, 1, n, "criteria stay installed over the new rows")

	_, ok, _ := s.GetRowByID(ids[0])
	assert.False(t, ok)
	checked, _ := s.CheckedCount()
	assert.Zero(t, checked)
	has, _ := s.HasValidationStateForScope(false, false)
	assert.False(t, has)
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s, fruits())
	require.NoError(t, s.SetFilterCriteria(ctx, []types.FilterCriteria{
		{Column: "ID", Operator: types.OpGreater, Value: types.Int(1)},
	}))

	require.NoError(t, s.ClearAll(ctx))

	n, _ := s.GetRowCount(false)
	assert.Zero(t, n)
	criteria, _ := s.GetFilterCriteria()
	assert.Empty(t, criteria)
	_, ok, err := s.GetLastRow()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CheckedState(t *testing.T) {
	s := newStore(t)
	ids := seed(t, s, fruits())

	ok, err := s.SetRowChecked(ids[1], true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.SetRowChecked(types.RowID(999), true)
	require.NoError(t, err)
	assert.False(t, ok)

	checked, _ := s.IsRowChecked(ids[1])
	assert.True(t, checked)
	n, _ := s.CheckedCount()
	assert.Equal(t, 1, n)

	_, _ = s.SetRowChecked(ids[1], false)
	n, _ = s.CheckedCount()
	assert.Zero(t, n)
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, fruits())

	out, err := s.Search(ctx, types.SearchCriteria{Text: "Ban", Mode: types.ModeSubstring}, false)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, ids[1], out.Results[0].RowID)
	assert.Equal(t, "Name", out.Results[0].Column)

	require.NoError(t, s.SetFilterCriteria(ctx, []types.FilterCriteria{
		{Column: "ID", Operator: types.OpGreater, Value: types.Int(2)},
	}))
	out, err = s.Search(ctx, types.SearchCriteria{Text: "Ban", Mode: types.ModeSubstring}, true)
	require.NoError(t, err)
	assert.Empty(t, out.Results)
}

func TestStore_ClosedStoreReturnsDataAccessError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s, fruits())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")

	calls := map[string]func() error{
		"AddRow":        func() error { _, err := s.AddRow(ctx, data()); return err },
		"AddRows":       func() error { _, err := s.AddRows(ctx, fruits()); return err },
		"InsertRows":    func() error { _, err := s.InsertRows(ctx, fruits(), 0); return err },
		"ReplaceAll":    func() error { _, err := s.ReplaceAllRows(ctx, fruits()); return err },
		"GetRowByID":    func() error { _, _, err := s.GetRowByID(1); return err },
		"GetRow":        func() error { _, _, err := s.GetRow(0, true); return err },
		"GetAllRows":    func() error { _, err := s.GetAllRows(ctx, false); return err },
		"GetRowCount":   func() error { _, err := s.GetRowCount(false); return err },
		"UpdateRowByID": func() error { _, err := s.UpdateRowByID(ctx, 1, data()); return err },
		"RemoveRowByID": func() error { _, err := s.RemoveRowByID(ctx, 1); return err },
		"RemoveRows":    func() error { _, err := s.RemoveRowsByID(ctx, []types.RowID{1}); return err },
		"SetFilter":     func() error { return s.SetFilterCriteria(ctx, nil) },
		"ClearFilter":   func() error { return s.ClearFilterCriteria() },
		"MapFiltered":   func() error { _, _, err := s.MapFilteredIndexToOriginalIndex(0); return err },
		"GetLastRow":    func() error { _, _, err := s.GetLastRow(); return err },
		"Validate":      func() error { return s.WriteValidationResults(ctx, nil) },
		"GetErrors":     func() error { _, err := s.GetValidationErrors(false, false); return err },
		"ClearAll":      func() error { return s.ClearAll(ctx) },
		"SortRows":      func() error { return s.SortRows(ctx, nil) },
		"Columns":       func() error { _, err := s.Columns(); return err },
		"StreamRows": func() error {
			for _, err := range s.StreamRows(ctx, types.StreamOptions{}) {
				return err
			}
			return nil
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			var dae *types.DataAccessError
			require.ErrorAs(t, err, &dae)
			assert.ErrorIs(t, err, types.ErrStoreClosed)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.AddRows(ctx, fruits())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)

	_, err = s.AddRow(ctx, data())
	assert.True(t, errors.Is(err, context.Canceled))

	count, _ := s.GetRowCount(false)
	assert.Zero(t, count)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, func(c *types.Config) { c.Store.BatchSize = 16 })
	require.NoError(t, s.SetFilterCriteria(ctx, []types.FilterCriteria{
		{Column: "N", Operator: types.OpLess, Value: types.Int(500)},
	}))

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 250 {
				_, err := s.AddRow(ctx, data(types.F("N", w*1000+i)))
				assert.NoError(t, err)
			}
		}()
	}
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, err := s.GetAllRows(ctx, true)
				assert.NoError(t, err)
				_, _, err = s.MapFilteredIndexToOriginalIndex(0)
				assert.NoError(t, err)
				if last, ok, _ := s.GetLastRow(); ok {
					assert.NoError(t, s.WriteValidationResults(ctx, []types.ValidationResult{{RowID: last.ID}}))
				}
			}
		}()
	}
	wg.Wait()

	n, err := s.GetRowCount(false)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	n, err = s.GetRowCount(true)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assertViewConsistent(t, s)
}

func TestStore_AppendRowsReturnsIDsInOrder(t *testing.T) {
	s := newStore(t, func(c *types.Config) { c.Store.BatchSize = 2 })
	ctx := context.Background()

	ids, err := s.AppendRows(ctx, fruits())
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for i, id := range ids {
		row, ok, err := s.GetRow(i, false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, id, row.ID)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	ids, err = s.AppendRows(cancelled, fruits())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ids)
}
