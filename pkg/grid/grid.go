// Package grid is the public entry point to rowgrid. A Grid composes the
// in-memory row store, the smart-operation policy and the notification
// gate, and reports mutating operations as types.OperationResult values
// instead of raw errors.
//
// Example:
//
//	g, err := grid.New(types.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//	res := g.ImportDictionaries(ctx, records, types.ImportReplace)
//	if !res.Success {
//	    log.Println(res.Messages)
//	}
package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mesh-intelligence/rowgrid/internal/logging"
	"github.com/mesh-intelligence/rowgrid/internal/memory"
	"github.com/mesh-intelligence/rowgrid/internal/notify"
	"github.com/mesh-intelligence/rowgrid/internal/smartops"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Grid is one grid instance. It is safe for concurrent use.
type Grid struct {
	cfg    types.Config
	store  *memory.Store
	smart  *smartops.Service
	gate   *notify.Gate
	logger *slog.Logger
}

type options struct {
	logger   *slog.Logger
	sink     notify.Sink
	template func() types.RowData
}

// Option configures a Grid.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSink attaches the UI notification sink. Without one the grid runs
// headless whatever the configured mode.
func WithSink(sink notify.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithTemplate shapes the empty rows that smart operations synthesize.
func WithTemplate(fn func() types.RowData) Option {
	return func(o *options) { o.template = fn }
}

// New validates cfg and builds a grid.
func New(cfg types.Config, opts ...Option) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrDefault(o.logger)

	store, err := memory.New(cfg, memory.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	smartOpts := []smartops.Option{smartops.WithLogger(logger)}
	if o.template != nil {
		smartOpts = append(smartOpts, smartops.WithTemplate(o.template))
	}
	smart, err := smartops.New(store, cfg.Smart, smartOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	gate, err := notify.NewGate(cfg.Notify.Mode, o.sink, notify.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, err
	}
	return &Grid{
		cfg:    cfg,
		store:  store,
		smart:  smart,
		gate:   gate,
		logger: logging.Component(logger, "grid"),
	}, nil
}

// Config returns the configuration the grid was built with.
func (g *Grid) Config() types.Config { return g.cfg }

// Store returns the row store for collaborators that read or validate
// rows directly.
func (g *Grid) Store() *memory.Store { return g.store }

// Smart returns the smart-operation service.
func (g *Grid) Smart() *smartops.Service { return g.smart }

// Gate returns the notification gate.
func (g *Grid) Gate() *notify.Gate { return g.gate }

// Close releases the store. Idempotent.
func (g *Grid) Close() error { return g.store.Close() }

// RequestRefresh asks the sink to reload its whole view. It reports
// whether the request was delivered.
func (g *Grid) RequestRefresh(ctx context.Context) bool {
	return g.gate.RequestRefresh(ctx)
}

// step is the body of a facade operation. It fills res and returns the
// error that decides the outcome.
type step func(ctx context.Context, res *types.OperationResult) error

// run executes a facade operation under a fresh operation ID. A panic
// becomes a *types.CriticalError; cancellation is reported as Cancelled,
// not as a failure; a non-empty change is published through the gate
// whatever the outcome, since rows may have changed before a failure.
func (g *Grid) run(ctx context.Context, op string, fn step) (out types.OperationResult) {
	start := time.Now()
	ctx = logging.ContextWithOperationID(ctx, types.NewOperationID())
	log := logging.WithFields(ctx, g.logger, "op", op)

	// res is a local so the step never holds the address of the named
	// result the deferred recover assigns.
	var res types.OperationResult
	defer func() {
		if r := recover(); r != nil {
			ce := &types.CriticalError{Op: op, Cause: r}
			log.Error("operation panicked", "panic", r, "stack", string(debug.Stack()))
			msgs := append(append([]string(nil), res.Messages...), ce.Error())
			out = types.OperationResult{Err: ce, Messages: msgs}
		}
	}()

	err := fn(ctx, &res)
	switch {
	case err == nil:
		res.Success = true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.Cancelled = true
		res.Err = err
		res.Messages = append(res.Messages, fmt.Sprintf("%s cancelled", op))
		log.Info("operation cancelled", "error", err)
	default:
		res.Err = err
		res.Messages = append(res.Messages, err.Error())
		log.Warn("operation failed", "error", err)
	}

	if !res.Change.Empty() {
		res.Notified = g.gate.Publish(ctx, res.Change)
	}
	log.Debug("operation finished",
		"success", res.Success,
		"rows", res.Change.AffectedRows,
		"duration", time.Since(start))
	return res
}

// absorb folds a smart-operation delta into res. A fixup failure is
// reported as a message and does not fail the operation.
func absorb(res *types.OperationResult, kind types.ChangeKind, d types.Delta, err error) error {
	res.Delta.Merge(d)
	if res.Delta.ID == "" {
		res.Delta.ID = d.ID
	}
	if res.Change.ID == "" {
		res.Change = newChange(kind)
	}
	res.Change.Merge(d.Change(kind))
	if err != nil && smartops.IsFixupFailure(err) {
		res.Messages = append(res.Messages, "invariant maintenance failed: "+err.Error())
		return nil
	}
	return err
}

func newChange(kind types.ChangeKind) types.ChangeDescriptor {
	return types.NewChangeDescriptor(kind)
}
