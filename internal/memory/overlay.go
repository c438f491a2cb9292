package memory

import (
	"slices"
	"sync"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// overlay holds validation state keyed by RowID. A present entry with no
// errors marks the row valid; an absent entry means never validated.
type overlay struct {
	mu      sync.RWMutex
	states  map[types.RowID][]types.ValidationError
	invalid int // rows holding at least one Error or Critical finding
}

func newOverlay() *overlay {
	return &overlay{states: make(map[types.RowID][]types.ValidationError)}
}

// writeLocked replaces one row's state. Caller holds o.mu.
func (o *overlay) writeLocked(res types.ValidationResult) {
	if prev, ok := o.states[res.RowID]; ok && !validErrors(prev) {
		o.invalid--
	}
	errs := make([]types.ValidationError, len(res.Errors))
	for i, e := range res.Errors {
		e.RowID = res.RowID
		errs[i] = e
	}
	o.states[res.RowID] = errs
	if !validErrors(errs) {
		o.invalid++
	}
}

func (o *overlay) drop(id types.RowID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropLocked(id)
}

func (o *overlay) dropLocked(id types.RowID) {
	if prev, ok := o.states[id]; ok {
		if !validErrors(prev) {
			o.invalid--
		}
		delete(o.states, id)
	}
}

func (o *overlay) dropAll(ids []types.RowID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		o.dropLocked(id)
	}
}

func (o *overlay) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = make(map[types.RowID][]types.ValidationError)
	o.invalid = 0
}

// getLocked returns a copy of a row's findings. Caller holds o.mu.
func (o *overlay) getLocked(id types.RowID) ([]types.ValidationError, bool) {
	errs, ok := o.states[id]
	return slices.Clone(errs), ok
}

func validErrors(errs []types.ValidationError) bool {
	return types.ValidationResult{Errors: errs}.Valid()
}
