package memory

import (
	"context"
	"time"

	"github.com/mesh-intelligence/rowgrid/internal/metrics"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// WriteValidationResults replaces the validation state of each listed row.
// Results for rows that no longer exist are dropped. The store's read lock
// is held for the whole write, so results never attach to a row whose data
// write is still in progress.
func (s *Store) WriteValidationResults(ctx context.Context, results []types.ValidationResult) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("write_validation", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.rlock("write_validation"); err != nil {
		return err
	}
	defer s.mu.RUnlock()

	s.overlay.mu.Lock()
	defer s.overlay.mu.Unlock()

	skipped := 0
	for _, res := range results {
		if _, ok := s.byID[res.RowID]; !ok {
			skipped++
			continue
		}
		s.overlay.writeLocked(res)
	}
	if skipped > 0 {
		s.logger.Debug("validation results for missing rows dropped", "skipped", skipped)
	}
	return nil
}

// GetValidationErrors returns every finding for rows in scope, in display
// order.
func (s *Store) GetValidationErrors(onlyFiltered, onlyChecked bool) (out []types.ValidationError, err error) {
	err = s.read(context.Background(), "get_validation_errors", onlyFiltered, func() error {
		s.overlay.mu.RLock()
		defer s.overlay.mu.RUnlock()
		if len(s.overlay.states) == 0 {
			return nil
		}
		for e := range s.scope(onlyFiltered, onlyChecked) {
			if errs, ok := s.overlay.getLocked(e.id); ok {
				out = append(out, errs...)
			}
		}
		return nil
	})
	return out, err
}

// AreAllNonEmptyRowsMarkedValid reports whether every non-blank row in
// scope has validation state with no Error or Critical finding. A row never
// validated is not marked valid. A scope with no non-blank rows is valid.
func (s *Store) AreAllNonEmptyRowsMarkedValid(onlyFiltered, onlyChecked bool) (valid bool, err error) {
	err = s.read(context.Background(), "are_rows_valid", onlyFiltered, func() error {
		s.overlay.mu.RLock()
		defer s.overlay.mu.RUnlock()
		valid = true
		for e := range s.scope(onlyFiltered, onlyChecked) {
			if e.data.IsBlank() {
				continue
			}
			errs, ok := s.overlay.states[e.id]
			if !ok || !validErrors(errs) {
				valid = false
				return nil
			}
		}
		return nil
	})
	return valid, err
}

// HasValidationStateForScope reports whether any row in scope has been
// validated.
func (s *Store) HasValidationStateForScope(onlyFiltered, onlyChecked bool) (has bool, err error) {
	err = s.read(context.Background(), "has_validation_state", onlyFiltered, func() error {
		s.overlay.mu.RLock()
		defer s.overlay.mu.RUnlock()
		if len(s.overlay.states) == 0 {
			return nil
		}
		for e := range s.scope(onlyFiltered, onlyChecked) {
			if _, ok := s.overlay.states[e.id]; ok {
				has = true
				return nil
			}
		}
		return nil
	})
	return has, err
}

// InvalidRowCount returns how many rows hold an Error or Critical finding.
func (s *Store) InvalidRowCount() (int, error) {
	if err := s.rlock("invalid_row_count"); err != nil {
		return 0, err
	}
	defer s.mu.RUnlock()
	s.overlay.mu.RLock()
	defer s.overlay.mu.RUnlock()
	return s.overlay.invalid, nil
}

// ClearValidationState discards all validation state. Rows are untouched.
func (s *Store) ClearValidationState() error {
	if err := s.rlock("clear_validation"); err != nil {
		return err
	}
	defer s.mu.RUnlock()
	s.overlay.reset()
	return nil
}
