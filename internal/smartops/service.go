// Package smartops maintains grid-level invariants after structural
// changes: a minimum row count, a trailing empty row, content-clearing
// instead of removal below the minimum, and duplicate/empty row detection.
//
// Every operation drives the store through its public API and returns a
// types.Delta describing what it did. Invariant fixups are best-effort:
// a failing fixup is logged and counted but never undoes the structural
// change that preceded it.
package smartops

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/mesh-intelligence/rowgrid/internal/logging"
	"github.com/mesh-intelligence/rowgrid/internal/metrics"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Store is the part of types.RowStore the service drives.
type Store interface {
	AddRow(ctx context.Context, data types.RowData) (types.RowID, error)
	GetRowByID(id types.RowID) (types.Row, bool, error)
	UpdateRowByID(ctx context.Context, id types.RowID, data types.RowData) (bool, error)
	RemoveRowsByID(ctx context.Context, ids []types.RowID) (int, error)
	GetRow(index int, onlyFiltered bool) (types.Row, bool, error)
	GetRowCount(onlyFiltered bool) (int, error)
	GetLastRow() (types.Row, bool, error)
	StreamRows(ctx context.Context, opts types.StreamOptions) iter.Seq2[[]types.Row, error]
}

// Service applies the smart-operation policy to a store.
type Service struct {
	store    Store
	policy   types.SmartConfig
	template func() types.RowData
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTemplate sets the function that shapes synthesized empty rows. The
// default blanks the last row's fields, or uses a row with no fields when
// the store is empty.
func WithTemplate(fn func() types.RowData) Option {
	return func(s *Service) { s.template = fn }
}

// New returns a Service for store under policy.
func New(store Store, policy types.SmartConfig, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, &types.OperationError{Op: "smartops.new", Err: types.ErrNilArgument}
	}
	if policy.MinimumRows < 0 {
		return nil, &types.ConfigurationError{Field: "smart.minimum_rows", Err: types.ErrMinimumRowsInvalid}
	}
	s := &Service{store: store, policy: policy}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Component(s.logger, "smartops")
	return s, nil
}

// Policy returns the active policy.
func (s *Service) Policy() types.SmartConfig { return s.policy }

// blankRow returns a synthesized empty row.
func (s *Service) blankRow() types.RowData {
	if s.template != nil {
		return s.template().Blanked()
	}
	if last, ok, err := s.store.GetLastRow(); err == nil && ok {
		return last.Data.Blanked()
	}
	return types.NewRowData()
}

// fail records a best-effort failure and wraps it. Cancellation passes
// through unwrapped and is not counted.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	metrics.SmartOperationFailuresTotal.WithLabelValues(op).Inc()
	logging.FromContext(ctx, s.logger).Warn("smart operation failed", "op", op, "error", err)
	return &types.OperationError{Op: op, Err: err}
}

func newDelta() types.Delta {
	return types.Delta{ID: types.NewOperationID()}
}

// fixupOps names the best-effort steps whose failures fail() wraps.
var fixupOps = map[string]bool{
	"auto_expand":       true,
	"ensure_min_rows":   true,
	"ensure_last_empty": true,
}

// IsFixupFailure reports whether err came from a best-effort invariant
// fixup rather than from the requested change itself.
func IsFixupFailure(err error) bool {
	var oe *types.OperationError
	return errors.As(err, &oe) && fixupOps[oe.Op]
}
