// Package notify decides whether structural changes reach the UI layer.
//
// The decision is a pure function of the operation mode and whether a
// sink was supplied. Headless never notifies. Readonly suppresses automatic
// notifications and only forwards explicit refresh requests. Interactive
// forwards every non-empty change.
package notify

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/mesh-intelligence/rowgrid/internal/logging"
	"github.com/mesh-intelligence/rowgrid/internal/metrics"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Sink receives change descriptors. Implementations must be safe for
// concurrent use.
type Sink interface {
	Notify(ctx context.Context, change types.ChangeDescriptor) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, change types.ChangeDescriptor) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, change types.ChangeDescriptor) error {
	return f(ctx, change)
}

// ShouldNotify reports whether an automatic change notification is
// forwarded.
func ShouldNotify(mode types.OperationMode, hasSink bool) bool {
	return hasSink && mode == types.ModeInteractive
}

// ShouldRefresh reports whether a manual refresh request is forwarded.
func ShouldRefresh(mode types.OperationMode, hasSink bool) bool {
	return hasSink && (mode == types.ModeReadonly || mode == types.ModeInteractive)
}

// Gate forwards change descriptors to a sink according to the mode. It
// never touches row data.
type Gate struct {
	mu      sync.RWMutex
	mode    types.OperationMode
	sink    Sink
	pending int
	logger  *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// NewGate returns a gate for mode. An empty mode is headless. A nil sink
// behaves as headless whatever the mode. A non-nil interface holding a nil
// pointer, func, map or channel is rejected.
func NewGate(mode types.OperationMode, sink Sink, opts ...GateOption) (*Gate, error) {
	if mode == "" {
		mode = types.ModeHeadless
	}
	if _, err := types.ParseOperationMode(string(mode)); err != nil {
		return nil, err
	}
	if sink != nil && isNilValue(sink) {
		return nil, &types.ConfigurationError{Field: "notify.sink", Err: types.ErrNilArgument}
	}
	g := &Gate{mode: mode, sink: sink}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.Component(g.logger, "notify")
	return g, nil
}

// Mode returns the current mode.
func (g *Gate) Mode() types.OperationMode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// SetMode switches the mode.
func (g *Gate) SetMode(mode types.OperationMode) error {
	if _, err := types.ParseOperationMode(string(mode)); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = mode
	return nil
}

// Pending returns how many changes were suppressed since the last
// forwarded notification or refresh.
func (g *Gate) Pending() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pending
}

// Publish forwards change when the mode allows it and reports whether it
// was delivered. Empty changes are dropped. A sink error is logged and
// reported as not delivered; it never propagates to the caller.
func (g *Gate) Publish(ctx context.Context, change types.ChangeDescriptor) bool {
	if change.Empty() {
		return false
	}
	g.mu.Lock()
	mode, sink := g.mode, g.sink
	if !ShouldNotify(mode, sink != nil) {
		g.pending++
		g.mu.Unlock()
		metrics.NotificationsTotal.WithLabelValues(string(mode), "suppressed").Inc()
		return false
	}
	g.mu.Unlock()
	return g.deliver(ctx, mode, sink, change)
}

// RequestRefresh asks the consumer to reload its whole view. It is the
// only way a readonly consumer learns about changes.
func (g *Gate) RequestRefresh(ctx context.Context) bool {
	g.mu.RLock()
	mode, sink := g.mode, g.sink
	g.mu.RUnlock()
	if !ShouldRefresh(mode, sink != nil) {
		metrics.NotificationsTotal.WithLabelValues(string(mode), "suppressed").Inc()
		return false
	}
	change := types.NewChangeDescriptor(types.ChangeRefresh)
	change.RequiresFullReload = true
	return g.deliver(ctx, mode, sink, change)
}

func (g *Gate) deliver(ctx context.Context, mode types.OperationMode, sink Sink, change types.ChangeDescriptor) bool {
	if err := sink.Notify(ctx, change); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(mode), "failed").Inc()
		logging.FromContext(ctx, g.logger).Warn("change notification failed",
			"change_id", change.ID,
			"kind", change.Kind,
			"error", err)
		return false
	}
	g.mu.Lock()
	g.pending = 0
	g.mu.Unlock()
	metrics.NotificationsTotal.WithLabelValues(string(mode), "forwarded").Inc()
	logging.FromContext(ctx, g.logger).Debug("change notified",
		"change_id", change.ID,
		"kind", change.Kind,
		"rows", change.AffectedRows,
		"full_reload", change.RequiresFullReload)
	return true
}

func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
