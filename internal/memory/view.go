package memory

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/rowgrid/internal/metrics"
	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

type viewState int

const (
	viewOff viewState = iota // no criteria; the filtered view is every row
	viewBuilt
	viewStale
)

// filterView is the filtered projection of the row list. toOriginal maps
// filtered index to position; toFiltered maps position to filtered index
// or -1. Both are valid only in viewBuilt.
type filterView struct {
	criteria   []types.FilterCriteria
	pred       query.Predicate
	state      viewState
	toOriginal []int
	toFiltered []int
}

func (v *filterView) active() bool { return v.state != viewOff }

func (v *filterView) stale() bool { return v.state == viewStale }

// set installs criteria and marks the view stale. Empty criteria clear it.
func (v *filterView) set(criteria []types.FilterCriteria) {
	if len(criteria) == 0 {
		v.clear()
		return
	}
	v.criteria = slices.Clone(criteria)
	v.pred = query.Compile(v.criteria)
	v.state = viewStale
	v.toOriginal, v.toFiltered = nil, nil
}

func (v *filterView) clear() {
	*v = filterView{}
}

// invalidate marks a built view stale after a mutation that moved rows.
func (v *filterView) invalidate() {
	if v.state == viewBuilt {
		v.state = viewStale
		v.toOriginal, v.toFiltered = nil, nil
	}
}

// appended extends a built view with rows appended at positions from..end.
func (v *filterView) appended(rows []*entry, from int) {
	if v.state != viewBuilt {
		return
	}
	for p := from; p < len(rows); p++ {
		if v.pred(rows[p].data) {
			v.toFiltered = append(v.toFiltered, len(v.toOriginal))
			v.toOriginal = append(v.toOriginal, p)
		} else {
			v.toFiltered = append(v.toFiltered, -1)
		}
	}
}

// updated re-evaluates one row whose content changed in place. Membership
// changes fall back to a rebuild.
func (v *filterView) updated(e *entry) {
	if v.state != viewBuilt {
		return
	}
	if v.pred(e.data) != (v.toFiltered[e.pos] >= 0) {
		v.invalidate()
	}
}

// build evaluates the predicate over rows. Above parallelThreshold rows the
// work is split across GOMAXPROCS chunks whose results are concatenated in
// order. On cancellation the view is left stale.
func (v *filterView) build(ctx context.Context, rows []*entry, parallelThreshold int, logger *slog.Logger) error {
	start := time.Now()
	strategy := "sequential"
	var (
		matched []int
		err     error
	)
	if parallelThreshold > 0 && len(rows) > parallelThreshold {
		strategy = "parallel"
		matched, err = matchParallel(ctx, rows, v.pred)
	} else {
		matched, err = matchRange(ctx, rows, 0, len(rows), v.pred)
	}
	if err != nil {
		return err
	}

	toFiltered := make([]int, len(rows))
	for i := range toFiltered {
		toFiltered[i] = -1
	}
	for f, p := range matched {
		toFiltered[p] = f
	}
	v.toOriginal, v.toFiltered, v.state = matched, toFiltered, viewBuilt

	metrics.FilterRebuildsTotal.WithLabelValues(strategy).Inc()
	metrics.FilterRebuildDuration.Observe(time.Since(start).Seconds())
	logger.Debug("filtered view built",
		"strategy", strategy,
		"rows", len(rows),
		"matched", len(matched),
		"criteria", len(v.criteria))
	return nil
}

func matchRange(ctx context.Context, rows []*entry, lo, hi int, pred query.Predicate) ([]int, error) {
	var out []int
	for p := lo; p < hi; p++ {
		if (p-lo)%cancelCheckStep == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if pred(rows[p].data) {
			out = append(out, p)
		}
	}
	return out, nil
}

func matchParallel(ctx context.Context, rows []*entry, pred query.Predicate) ([]int, error) {
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(rows) + workers - 1) / workers
	parts := make([][]int, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(rows))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			m, err := matchRange(gctx, rows, lo, hi, pred)
			parts[w] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}
