package memory

import (
	"slices"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// RegisterColumns adds or replaces column definitions by name. Existing
// columns keep their order; new ones are appended.
func (s *Store) RegisterColumns(cols ...types.ColumnDefinition) error {
	if err := validateColumns(cols); err != nil {
		return err
	}
	if err := s.lock("register_columns"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.registerLocked(cols)
	return nil
}

// ResetColumns replaces the whole registry.
func (s *Store) ResetColumns(cols ...types.ColumnDefinition) error {
	if err := validateColumns(cols); err != nil {
		return err
	}
	if err := s.lock("reset_columns"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.columns = nil
	s.colIndex = make(map[string]int)
	s.registerLocked(cols)
	return nil
}

func validateColumns(cols []types.ColumnDefinition) error {
	for _, c := range cols {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) registerLocked(cols []types.ColumnDefinition) {
	for _, c := range cols {
		if i, ok := s.colIndex[c.Name]; ok {
			s.columns[i] = c
			continue
		}
		s.colIndex[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
}

// Columns returns the registered columns in order.
func (s *Store) Columns() ([]types.ColumnDefinition, error) {
	if err := s.rlock("columns"); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()
	return slices.Clone(s.columns), nil
}

// Column returns one registered column.
func (s *Store) Column(name string) (types.ColumnDefinition, bool, error) {
	if err := s.rlock("columns"); err != nil {
		return types.ColumnDefinition{}, false, err
	}
	defer s.mu.RUnlock()
	i, ok := s.colIndex[name]
	if !ok {
		return types.ColumnDefinition{}, false, nil
	}
	return s.columns[i], true, nil
}

// CheckCriteria splits criteria into those the store would accept and the
// errors for those it would reject, so callers can apply a partial set.
func (s *Store) CheckCriteria(criteria []types.FilterCriteria) ([]types.FilterCriteria, []error, error) {
	if err := s.rlock("check_criteria"); err != nil {
		return nil, nil, err
	}
	defer s.mu.RUnlock()

	var (
		accepted []types.FilterCriteria
		rejected []error
	)
	for _, c := range criteria {
		if err := s.checkCriterionLocked(c); err != nil {
			rejected = append(rejected, err)
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted, rejected, nil
}

func (s *Store) checkCriterionLocked(c types.FilterCriteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(s.columns) == 0 {
		return nil
	}
	i, ok := s.colIndex[c.Column]
	if !ok {
		return &types.DataError{Position: -1, Column: c.Column, Err: types.ErrInvalidColumn}
	}
	if !s.columns[i].Filterable {
		return &types.DataError{Position: -1, Column: c.Column, Err: types.ErrInvalidFilter}
	}
	return nil
}

func (s *Store) checkSortKeysLocked(keys []types.SortKey) error {
	for _, k := range keys {
		if k.Column == "" {
			return &types.DataError{Position: -1, Err: types.ErrInvalidColumn}
		}
		if len(s.columns) == 0 {
			continue
		}
		i, ok := s.colIndex[k.Column]
		if !ok || !s.columns[i].Sortable {
			return &types.DataError{Position: -1, Column: k.Column, Err: types.ErrInvalidColumn}
		}
	}
	return nil
}
