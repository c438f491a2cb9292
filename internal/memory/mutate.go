package memory

import (
	"context"
	"slices"
	"time"

	"github.com/mesh-intelligence/rowgrid/internal/metrics"
	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// AddRow appends one row and returns its new ID.
func (s *Store) AddRow(ctx context.Context, data types.RowData) (id types.RowID, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("add_row", start, err) }()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d := data.Clone()
	if err := s.lock("add_row"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	entries := s.newEntries([]types.RowData{d})
	s.appendLocked(entries)
	metrics.AddRows("add_row", 1)
	return entries[0].id, nil
}

// AddRows appends rows in BatchSize chunks, taking the write lock once per
// chunk. The context is checked between chunks; rows already appended
// stay and the count reflects them.
func (s *Store) AddRows(ctx context.Context, data []types.RowData) (int, error) {
	ids, err := s.appendChunks(ctx, "add_rows", data)
	return len(ids), err
}

// AppendRows is AddRows returning the new IDs in order.
func (s *Store) AppendRows(ctx context.Context, data []types.RowData) ([]types.RowID, error) {
	return s.appendChunks(ctx, "append_rows", data)
}

func (s *Store) appendChunks(ctx context.Context, op string, data []types.RowData) (ids []types.RowID, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(op, start, err)
		metrics.AddRows(op, len(ids))
	}()

	ids = make([]types.RowID, 0, len(data))
	for lo := 0; lo < len(data); lo += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		hi := min(lo+s.cfg.BatchSize, len(data))
		chunk := cloneAll(data[lo:hi])
		if err := s.lock(op); err != nil {
			return ids, err
		}
		entries := s.newEntries(chunk)
		s.appendLocked(entries)
		s.mu.Unlock()
		ids = append(ids, entryIDs(entries)...)
	}
	if len(ids) > 0 {
		s.logger.Debug("rows appended", "op", op, "rows", len(ids))
	}
	return ids, nil
}

func (s *Store) appendLocked(entries []*entry) {
	if len(entries) == 0 {
		return
	}
	from := len(s.rows)
	for i, e := range entries {
		e.pos = from + i
		s.byID[e.id] = e
	}
	s.rows = append(s.rows, entries...)
	s.lastID = entries[len(entries)-1].id
	s.view.appended(s.rows, from)
}

// InsertRows inserts rows at position at in the unfiltered order. at may
// equal the row count to append. An out-of-range position is a
// *types.DataError.
func (s *Store) InsertRows(ctx context.Context, data []types.RowData, at int) (ids []types.RowID, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("insert_rows", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cloned := cloneAll(data)
	if err := s.lock("insert_rows"); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if at < 0 || at > len(s.rows) {
		return nil, &types.DataError{Position: at, Err: types.ErrInvalidIndex}
	}
	if len(cloned) == 0 {
		return nil, nil
	}
	entries := s.newEntries(cloned)
	if at == len(s.rows) {
		s.appendLocked(entries)
	} else {
		for _, e := range entries {
			s.byID[e.id] = e
		}
		s.rows = slices.Insert(s.rows, at, entries...)
		s.reindex(at)
		s.lastID = entries[len(entries)-1].id
		s.view.invalidate()
	}
	metrics.AddRows("insert_rows", len(entries))
	return entryIDs(entries), nil
}

// ReplaceAllRows discards every row with its validation and checked state
// and stores data under fresh IDs. Filter criteria stay installed and are
// re-evaluated against the new rows. The swap is atomic for readers.
func (s *Store) ReplaceAllRows(ctx context.Context, data []types.RowData) (ids []types.RowID, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("replace_all_rows", start, err) }()

	cloned := make([]types.RowData, len(data))
	for i, d := range data {
		if i%cancelCheckStep == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cloned[i] = d.Clone()
	}

	if err := s.lock("replace_all_rows"); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	removed := len(s.rows)
	s.rows = make([]*entry, 0, len(cloned))
	s.byID = make(map[types.RowID]*entry, len(cloned))
	s.checked = make(map[types.RowID]struct{})
	s.lastID = 0
	s.overlay.reset()
	s.view.set(s.view.criteria)

	entries := s.newEntries(cloned)
	s.appendLocked(entries)
	metrics.AddRows("replace_all_rows", len(entries))
	s.logger.Debug("rows replaced", "removed", removed, "added", len(entries))
	return entryIDs(entries), nil
}

// UpdateRowByID replaces a row's content. The row keeps its ID and position;
// its validation state is discarded until revalidated.
func (s *Store) UpdateRowByID(ctx context.Context, id types.RowID, data types.RowData) (ok bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("update_row", start, err) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	d := data.Clone()
	if err := s.lock("update_row"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	s.updateLocked(e, d)
	return true, nil
}

// UpdateRow replaces the content of the row at index in the chosen scope.
func (s *Store) UpdateRow(ctx context.Context, index int, data types.RowData, onlyFiltered bool) (ok bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("update_row", start, err) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	d := data.Clone()
	if err := s.lock("update_row"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if onlyFiltered {
		if err := s.refreshViewLocked(ctx); err != nil {
			return false, err
		}
	}
	pos, ok := s.resolve(index, onlyFiltered)
	if !ok {
		return false, nil
	}
	s.updateLocked(s.rows[pos], d)
	return true, nil
}

// SetCell assigns one field of a row, adding the field if absent.
func (s *Store) SetCell(ctx context.Context, id types.RowID, column string, v types.Value) (ok bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("set_cell", start, err) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if column == "" {
		return false, &types.DataError{Position: -1, RowID: id, Err: types.ErrInvalidColumn}
	}
	if err := s.lock("set_cell"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	d := e.data.Clone()
	d.Set(column, v)
	s.updateLocked(e, d)
	return true, nil
}

func (s *Store) updateLocked(e *entry, d types.RowData) {
	e.data = d
	s.overlay.drop(e.id)
	s.view.updated(e)
	metrics.AddRows("update_row", 1)
}

// RemoveRowByID removes a row and purges its validation and checked state.
func (s *Store) RemoveRowByID(ctx context.Context, id types.RowID) (ok bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("remove_row", start, err) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.lock("remove_row"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	s.removeAtLocked(e.pos)
	return true, nil
}

// RemoveRow removes the row at index in the chosen scope.
func (s *Store) RemoveRow(ctx context.Context, index int, onlyFiltered bool) (ok bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("remove_row", start, err) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.lock("remove_row"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if onlyFiltered {
		if err := s.refreshViewLocked(ctx); err != nil {
			return false, err
		}
	}
	pos, ok := s.resolve(index, onlyFiltered)
	if !ok {
		return false, nil
	}
	s.removeAtLocked(pos)
	return true, nil
}

func (s *Store) removeAtLocked(pos int) {
	e := s.rows[pos]
	s.rows = slices.Delete(s.rows, pos, pos+1)
	delete(s.byID, e.id)
	delete(s.checked, e.id)
	s.overlay.drop(e.id)
	s.reindex(pos)
	s.view.invalidate()
	if e.id == s.lastID {
		s.recomputeLast()
	}
	metrics.AddRows("remove_row", 1)
}

// RemoveRowsByID removes every listed row that exists in one pass and
// returns how many were removed. Unknown IDs are ignored.
func (s *Store) RemoveRowsByID(ctx context.Context, ids []types.RowID) (removed int, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation("remove_rows", start, err)
		metrics.AddRows("remove_rows", removed)
	}()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.lock("remove_rows"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	drop := make(map[types.RowID]struct{}, len(ids))
	first := len(s.rows)
	for _, id := range ids {
		if e, ok := s.byID[id]; ok {
			drop[id] = struct{}{}
			first = min(first, e.pos)
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	gone := make([]types.RowID, 0, len(drop))
	s.rows = slices.DeleteFunc(s.rows, func(e *entry) bool {
		if _, ok := drop[e.id]; ok {
			gone = append(gone, e.id)
			return true
		}
		return false
	})
	for _, id := range gone {
		delete(s.byID, id)
		delete(s.checked, id)
	}
	s.overlay.dropAll(gone)
	s.reindex(first)
	s.view.invalidate()
	if _, ok := drop[s.lastID]; ok {
		s.recomputeLast()
	}
	return len(gone), nil
}

// SortRows stably reorders the authoritative row list by keys. RowIDs are
// unchanged and the filtered view is rebuilt on next use. When columns are
// registered, keys must name sortable registered columns.
func (s *Store) SortRows(ctx context.Context, keys []types.SortKey) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("sort_rows", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.lock("sort_rows"); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.checkSortKeysLocked(keys); err != nil {
		return err
	}
	if len(keys) == 0 || len(s.rows) < 2 {
		return nil
	}

	data := make([]types.RowData, len(s.rows))
	for i, e := range s.rows {
		data[i] = e.data
	}
	order := query.SortedOrder(data, keys)
	if err := ctx.Err(); err != nil {
		return err
	}
	sorted := make([]*entry, len(s.rows))
	for i, p := range order {
		sorted[i] = s.rows[p]
	}
	s.rows = sorted
	s.reindex(0)
	s.view.invalidate()
	s.logger.Debug("rows sorted", "rows", len(sorted), "keys", len(keys))
	return nil
}

// ClearAll removes every row together with validation state, checked state
// and filter criteria.
func (s *Store) ClearAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("clear_all", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.lock("clear_all"); err != nil {
		return err
	}
	defer s.mu.Unlock()

	n := len(s.rows)
	s.rows = nil
	s.byID = make(map[types.RowID]*entry)
	s.checked = make(map[types.RowID]struct{})
	s.lastID = 0
	s.view.clear()
	s.overlay.reset()
	metrics.AddRows("clear_all", n)
	return nil
}

// SetRowChecked sets a row's checked flag. It returns false when the row
// does not exist.
func (s *Store) SetRowChecked(id types.RowID, checked bool) (bool, error) {
	if err := s.lock("set_row_checked"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	if checked {
		s.checked[id] = struct{}{}
	} else {
		delete(s.checked, id)
	}
	return true, nil
}

// IsRowChecked reports a row's checked flag.
func (s *Store) IsRowChecked(id types.RowID) (bool, error) {
	if err := s.rlock("is_row_checked"); err != nil {
		return false, err
	}
	defer s.mu.RUnlock()
	_, ok := s.checked[id]
	return ok, nil
}

// CheckedCount returns the number of checked rows.
func (s *Store) CheckedCount() (int, error) {
	if err := s.rlock("checked_count"); err != nil {
		return 0, err
	}
	defer s.mu.RUnlock()
	return len(s.checked), nil
}

func entryIDs(entries []*entry) []types.RowID {
	ids := make([]types.RowID, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}
