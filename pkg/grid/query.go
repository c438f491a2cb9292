package grid

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// ApplyFilters installs every criterion the store accepts and reports the
// rest. When some are rejected the accepted ones still apply and the
// result carries "k of n filters applied" with one message per rejection;
// Success is false.
func (g *Grid) ApplyFilters(ctx context.Context, criteria []types.FilterCriteria) types.OperationResult {
	return g.run(ctx, "apply_filters", func(ctx context.Context, res *types.OperationResult) error {
		accepted, rejected, err := g.store.CheckCriteria(criteria)
		if err != nil {
			return err
		}
		if err := g.store.SetFilterCriteria(ctx, accepted); err != nil {
			return err
		}
		n, err := g.store.GetRowCount(true)
		if err != nil {
			return err
		}
		res.Change = newChange(types.ChangeFilter)
		res.Change.AffectedRows = n
		res.Change.RequiresFullReload = true

		res.Messages = append(res.Messages, fmt.Sprintf("%d of %d filters applied", len(accepted), len(criteria)))
		for _, r := range rejected {
			res.Messages = append(res.Messages, r.Error())
		}
		if len(rejected) > 0 {
			return &types.OperationError{
				Op:      "apply_filters",
				Context: map[string]any{"applied": len(accepted), "requested": len(criteria)},
				Err:     types.ErrInvalidFilter,
			}
		}
		return nil
	})
}

// ClearFilters removes every filter.
func (g *Grid) ClearFilters(ctx context.Context) types.OperationResult {
	return g.run(ctx, "clear_filters", func(ctx context.Context, res *types.OperationResult) error {
		if err := g.store.ClearFilterCriteria(); err != nil {
			return err
		}
		n, err := g.store.GetRowCount(false)
		if err != nil {
			return err
		}
		res.Change = newChange(types.ChangeFilter)
		res.Change.AffectedRows = n
		res.Change.RequiresFullReload = true
		return nil
	})
}

// Sort stably reorders the rows by keys.
func (g *Grid) Sort(ctx context.Context, keys []types.SortKey) types.OperationResult {
	return g.run(ctx, "sort", func(ctx context.Context, res *types.OperationResult) error {
		if err := g.store.SortRows(ctx, keys); err != nil {
			return err
		}
		n, err := g.store.GetRowCount(false)
		if err != nil {
			return err
		}
		res.Change = newChange(types.ChangeSort)
		res.Change.AffectedRows = n
		res.Change.AffectedColumns = len(keys)
		res.Change.RequiresFullReload = true
		return nil
	})
}

// Search ranks the rows of a scope against criteria. Searching changes no
// rows, so nothing is published.
func (g *Grid) Search(ctx context.Context, c types.SearchCriteria, onlyFiltered bool) ([]types.SearchResult, types.OperationResult) {
	var results []types.SearchResult
	res := g.run(ctx, "search", func(ctx context.Context, res *types.OperationResult) error {
		out, err := g.store.Search(ctx, c, onlyFiltered)
		results = out.Results
		if out.RegexFallback {
			res.Messages = append(res.Messages, "invalid or slow pattern; matched as literal text")
		}
		if err != nil {
			return err
		}
		res.Messages = append(res.Messages, fmt.Sprintf("%d matches in %d rows", len(out.Results), out.Scanned))
		return nil
	})
	return results, res
}

// WriteValidationResults stores per-row validation outcomes and publishes
// the affected rows as updated.
func (g *Grid) WriteValidationResults(ctx context.Context, results []types.ValidationResult) types.OperationResult {
	return g.run(ctx, "write_validation", func(ctx context.Context, res *types.OperationResult) error {
		if err := g.store.WriteValidationResults(ctx, results); err != nil {
			return err
		}
		res.Change = newChange(types.ChangeValidation)
		for _, r := range results {
			res.Change.Updated = append(res.Change.Updated, r.RowID)
		}
		res.Change.AffectedRows = len(results)
		return nil
	})
}

// ValidationSummary describes the validation state of a scope.
type ValidationSummary struct {
	Errors     []types.ValidationError
	AllValid   bool
	HasState   bool
	InvalidAll int // invalid rows in the whole store
}

// Validation summarizes the validation state of a scope.
func (g *Grid) Validation(onlyFiltered, onlyChecked bool) (ValidationSummary, error) {
	var (
		s   ValidationSummary
		err error
	)
	if s.Errors, err = g.store.GetValidationErrors(onlyFiltered, onlyChecked); err != nil {
		return s, err
	}
	if s.AllValid, err = g.store.AreAllNonEmptyRowsMarkedValid(onlyFiltered, onlyChecked); err != nil {
		return s, err
	}
	if s.HasState, err = g.store.HasValidationStateForScope(onlyFiltered, onlyChecked); err != nil {
		return s, err
	}
	s.InvalidAll, err = g.store.InvalidRowCount()
	return s, err
}
