// Package memory implements the in-memory RowStore: the authoritative row
// list in display order, the filtered view over it, the validation overlay
// and per-row checked state.
//
// Locking: Store.mu guards rows, identity, filtered view, checked state and
// the column registry. The validation overlay has its own mutex and is
// always acquired after Store.mu, never before.
package memory

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/rowgrid/internal/logging"
	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/internal/rowid"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// cancelCheckStep is how many rows a long scan processes between context
// checks.
const cancelCheckStep = 4096

// entry is one stored row. pos is its index in Store.rows and is kept
// current by every structural mutation.
type entry struct {
	id   types.RowID
	data types.RowData
	pos  int
}

// Store is the authoritative in-memory RowStore. Safe for concurrent use.
type Store struct {
	instance string
	cfg      types.StoreConfig
	logger   *slog.Logger
	ids      *rowid.Generator
	searcher *query.Searcher

	mu       sync.RWMutex
	closed   bool
	rows     []*entry
	byID     map[types.RowID]*entry
	lastID   types.RowID
	checked  map[types.RowID]struct{}
	columns  []types.ColumnDefinition
	colIndex map[string]int
	view     filterView

	overlay *overlay
}

var _ types.RowStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithGenerator sets the RowID generator, for callers that share one
// identity space across stores.
func WithGenerator(g *rowid.Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// New creates an empty store. It returns a *types.ConfigurationError when
// the store or search settings are invalid.
func New(cfg types.Config, opts ...Option) (*Store, error) {
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Search.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		instance: types.NewOperationID(),
		cfg:      cfg.Store,
		ids:      rowid.New(),
		searcher: query.NewSearcher(cfg.Search),
		byID:     make(map[types.RowID]*entry),
		checked:  make(map[types.RowID]struct{}),
		colIndex: make(map[string]int),
		overlay:  newOverlay(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Component(s.logger, "memory").With("store", s.instance)
	s.logger.Debug("store created",
		"batch_size", s.cfg.BatchSize,
		"parallel_filter_threshold", s.cfg.ParallelFilterThreshold)
	return s, nil
}

// Instance returns the store's UUID v7 instance ID.
func (s *Store) Instance() string { return s.instance }

// Close releases all rows and state. Calls after Close return a
// *types.DataAccessError. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.rows = nil
	s.byID = nil
	s.checked = nil
	s.view.clear()
	s.overlay.reset()
	s.logger.Debug("store closed")
	return nil
}

func closedErr(op string) error {
	return &types.DataAccessError{Op: op, Err: types.ErrStoreClosed}
}

// lock takes the write lock. On error the lock is not held.
func (s *Store) lock(op string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return closedErr(op)
	}
	return nil
}

// rlock takes the read lock. On error the lock is not held.
func (s *Store) rlock(op string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return closedErr(op)
	}
	return nil
}

// read runs fn under the read lock. When onlyFiltered is set and the
// filtered view is stale, the view is rebuilt under the write lock first.
// If writers keep invalidating the view, the third attempt runs fn under
// the write lock so readers cannot starve.
func (s *Store) read(ctx context.Context, op string, onlyFiltered bool, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.rlock(op); err != nil {
			return err
		}
		if !onlyFiltered || !s.view.stale() {
			err := fn()
			s.mu.RUnlock()
			return err
		}
		s.mu.RUnlock()

		if err := s.lock(op); err != nil {
			return err
		}
		if err := s.refreshViewLocked(ctx); err != nil {
			s.mu.Unlock()
			return err
		}
		if attempt >= 2 {
			err := fn()
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()
	}
}

// refreshViewLocked rebuilds a stale filtered view. Caller holds the write
// lock.
func (s *Store) refreshViewLocked(ctx context.Context) error {
	if !s.view.stale() {
		return nil
	}
	return s.view.build(ctx, s.rows, s.cfg.ParallelFilterThreshold, s.logger)
}

// reindex refreshes entry positions from index from to the end.
func (s *Store) reindex(from int) {
	for i := from; i < len(s.rows); i++ {
		s.rows[i].pos = i
	}
}

// newEntries assigns fresh IDs to data in order. Caller holds the write
// lock so positional order and ID order agree for appends.
func (s *Store) newEntries(data []types.RowData) []*entry {
	if len(data) == 0 {
		return nil
	}
	first := s.ids.Reserve(len(data))
	out := make([]*entry, len(data))
	for i, d := range data {
		out[i] = &entry{id: first + types.RowID(i), data: d}
	}
	return out
}

// scope yields the rows of a scope in display order. Caller holds a lock
// and, for onlyFiltered, a fresh view.
func (s *Store) scope(onlyFiltered, onlyChecked bool) iter.Seq[*entry] {
	return func(yield func(*entry) bool) {
		visit := func(e *entry) bool {
			if onlyChecked {
				if _, ok := s.checked[e.id]; !ok {
					return true
				}
			}
			return yield(e)
		}
		if onlyFiltered && s.view.active() {
			for _, p := range s.view.toOriginal {
				if !visit(s.rows[p]) {
					return
				}
			}
			return
		}
		for _, e := range s.rows {
			if !visit(e) {
				return
			}
		}
	}
}

// resolve maps a scope index to a position in rows. Caller holds a lock
// and, for onlyFiltered, a fresh view.
func (s *Store) resolve(index int, onlyFiltered bool) (int, bool) {
	if onlyFiltered && s.view.active() {
		if index < 0 || index >= len(s.view.toOriginal) {
			return 0, false
		}
		return s.view.toOriginal[index], true
	}
	if index < 0 || index >= len(s.rows) {
		return 0, false
	}
	return index, true
}

// recomputeLast finds the highest remaining RowID. Caller holds the write
// lock.
func (s *Store) recomputeLast() {
	s.lastID = 0
	for _, e := range s.rows {
		if e.id > s.lastID {
			s.lastID = e.id
		}
	}
}

func snapshot(e *entry) types.Row {
	return types.Row{ID: e.id, Data: e.data.Clone()}
}

func cloneAll(data []types.RowData) []types.RowData {
	out := make([]types.RowData, len(data))
	for i, d := range data {
		out[i] = d.Clone()
	}
	return out
}
