package memory

import (
	"context"
	"iter"
	"time"

	"github.com/mesh-intelligence/rowgrid/internal/metrics"
	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// GetRowByID returns a copy of a row. Absence is (zero, false, nil).
func (s *Store) GetRowByID(id types.RowID) (types.Row, bool, error) {
	if err := s.rlock("get_row"); err != nil {
		return types.Row{}, false, err
	}
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return types.Row{}, false, nil
	}
	return snapshot(e), true, nil
}

// GetRow returns a copy of the row at index in the chosen scope.
func (s *Store) GetRow(index int, onlyFiltered bool) (row types.Row, ok bool, err error) {
	err = s.read(context.Background(), "get_row", onlyFiltered, func() error {
		var pos int
		if pos, ok = s.resolve(index, onlyFiltered); ok {
			row = snapshot(s.rows[pos])
		}
		return nil
	})
	return row, ok, err
}

// GetAllRows returns copies of every row in the chosen scope in display
// order. Prefer StreamRows for large stores.
func (s *Store) GetAllRows(ctx context.Context, onlyFiltered bool) (rows []types.Row, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("get_all_rows", start, err) }()

	err = s.read(ctx, "get_all_rows", onlyFiltered, func() error {
		rows = make([]types.Row, 0, s.countLocked(onlyFiltered))
		for e := range s.scope(onlyFiltered, false) {
			if len(rows)%cancelCheckStep == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			rows = append(rows, snapshot(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetRowCount returns the number of rows in the chosen scope.
func (s *Store) GetRowCount(onlyFiltered bool) (n int, err error) {
	err = s.read(context.Background(), "get_row_count", onlyFiltered, func() error {
		n = s.countLocked(onlyFiltered)
		return nil
	})
	return n, err
}

func (s *Store) countLocked(onlyFiltered bool) int {
	if onlyFiltered && s.view.active() {
		return len(s.view.toOriginal)
	}
	return len(s.rows)
}

// GetLastRow returns the row with the highest RowID.
func (s *Store) GetLastRow() (types.Row, bool, error) {
	if err := s.rlock("get_last_row"); err != nil {
		return types.Row{}, false, err
	}
	defer s.mu.RUnlock()

	e, ok := s.byID[s.lastID]
	if !ok {
		return types.Row{}, false, nil
	}
	return snapshot(e), true, nil
}

// StreamRows yields the rows of a scope in batches. The scope's IDs are
// captured when iteration starts, one RowID (8 bytes) per row in scope and
// no row data; each batch is materialized on demand
// under a short read lock, so rows removed mid-stream are skipped and
// updates made before a batch is read are visible in it. The context is
// checked before every batch.
//
//	for batch, err := range store.StreamRows(ctx, types.StreamOptions{OnlyFiltered: true}) {
//		if err != nil {
//			return err
//		}
//		process(batch)
//	}
func (s *Store) StreamRows(ctx context.Context, opts types.StreamOptions) iter.Seq2[[]types.Row, error] {
	size := opts.BatchSize
	if size <= 0 {
		size = s.cfg.StreamBatchSize
	}
	return func(yield func([]types.Row, error) bool) {
		var ids []types.RowID
		err := s.read(ctx, "stream_rows", opts.OnlyFiltered, func() error {
			for e := range s.scope(opts.OnlyFiltered, opts.OnlyChecked) {
				ids = append(ids, e.id)
			}
			return nil
		})
		if err != nil {
			yield(nil, err)
			return
		}

		for lo := 0; lo < len(ids); lo += size {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			batch, err := s.rowsByID(ids[lo:min(lo+size, len(ids))])
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				continue
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

func (s *Store) rowsByID(ids []types.RowID) ([]types.Row, error) {
	if err := s.rlock("stream_rows"); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()

	out := make([]types.Row, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.byID[id]; ok {
			out = append(out, snapshot(e))
		}
	}
	return out, nil
}

// Search ranks the rows of a scope against criteria. Result positions are
// indexes into the scope: filtered indexes when onlyFiltered is set and a
// filter is active.
func (s *Store) Search(ctx context.Context, c types.SearchCriteria, onlyFiltered bool) (out query.SearchOutcome, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("search", start, err) }()

	err = s.read(ctx, "search", onlyFiltered, func() error {
		rows := make([]types.Row, 0, s.countLocked(onlyFiltered))
		for e := range s.scope(onlyFiltered, false) {
			rows = append(rows, types.Row{ID: e.id, Data: e.data})
		}
		var serr error
		out, serr = s.searcher.Search(ctx, rows, c)
		return serr
	})
	if out.RegexFallback {
		metrics.SearchRegexFallbackTotal.Inc()
		s.logger.Warn("regex search fell back to literal matching", "pattern", c.Text)
	}
	return out, err
}

// SetFilterCriteria installs criteria and builds the filtered view. Empty
// criteria clear the filter. Structurally invalid criteria, or criteria
// naming unregistered or non-filterable columns when columns are
// registered, are rejected with a *types.DataError and nothing changes. On
// cancellation the previous criteria and view are restored.
func (s *Store) SetFilterCriteria(ctx context.Context, criteria []types.FilterCriteria) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("set_filter", start, err) }()

	if err := s.lock("set_filter"); err != nil {
		return err
	}
	defer s.mu.Unlock()

	for _, c := range criteria {
		if err := s.checkCriterionLocked(c); err != nil {
			return err
		}
	}
	prev := s.view
	s.view.set(criteria)
	if err := s.refreshViewLocked(ctx); err != nil {
		s.view = prev
		return err
	}
	s.logger.Debug("filter criteria set", "criteria", len(criteria), "matched", s.countLocked(true))
	return nil
}

// ClearFilterCriteria removes the filter; the filtered view becomes every
// row. Clearing twice is the same as clearing once.
func (s *Store) ClearFilterCriteria() error {
	if err := s.lock("clear_filter"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.view.clear()
	return nil
}

// GetFilterCriteria returns a copy of the active criteria.
func (s *Store) GetFilterCriteria() ([]types.FilterCriteria, error) {
	if err := s.rlock("get_filter"); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()
	if len(s.view.criteria) == 0 {
		return nil, nil
	}
	return append([]types.FilterCriteria(nil), s.view.criteria...), nil
}

// MapFilteredIndexToOriginalIndex maps a filtered index to its position in
// the unfiltered order. Without a filter the mapping is the identity over
// valid positions.
func (s *Store) MapFilteredIndexToOriginalIndex(filteredIndex int) (pos int, ok bool, err error) {
	err = s.read(context.Background(), "map_filtered_index", true, func() error {
		pos, ok = s.resolve(filteredIndex, true)
		return nil
	})
	return pos, ok, err
}

// MapOriginalIndexToFilteredIndex maps a position in the unfiltered order
// to its filtered index. It reports false when the row is filtered out.
func (s *Store) MapOriginalIndexToFilteredIndex(originalIndex int) (idx int, ok bool, err error) {
	err = s.read(context.Background(), "map_original_index", true, func() error {
		if originalIndex < 0 || originalIndex >= len(s.rows) {
			return nil
		}
		if !s.view.active() {
			idx, ok = originalIndex, true
			return nil
		}
		if f := s.view.toFiltered[originalIndex]; f >= 0 {
			idx, ok = f, true
		}
		return nil
	})
	return idx, ok, err
}
