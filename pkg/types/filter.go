package types

import "strings"

// FilterOperator is a comparison applied by a FilterCriteria.
type FilterOperator string

// Filter operators.
const (
	OpEquals         FilterOperator = "eq"
	OpNotEquals      FilterOperator = "ne"
	OpContains       FilterOperator = "contains"
	OpNotContains    FilterOperator = "not_contains"
	OpStartsWith     FilterOperator = "starts"
	OpEndsWith       FilterOperator = "ends"
	OpGreater        FilterOperator = "gt"
	OpGreaterOrEqual FilterOperator = "gte"
	OpLess           FilterOperator = "lt"
	OpLessOrEqual    FilterOperator = "lte"
	OpIsNull         FilterOperator = "is_null"
	OpIsNotNull      FilterOperator = "is_not_null"
	OpIsEmpty        FilterOperator = "is_empty"
	OpIsNotEmpty     FilterOperator = "is_not_empty"
)

var validOperators = map[FilterOperator]bool{
	OpEquals:         true,
	OpNotEquals:      true,
	OpContains:       true,
	OpNotContains:    true,
	OpStartsWith:     true,
	OpEndsWith:       true,
	OpGreater:        true,
	OpGreaterOrEqual: true,
	OpLess:           true,
	OpLessOrEqual:    true,
	OpIsNull:         true,
	OpIsNotNull:      true,
	OpIsEmpty:        true,
	OpIsNotEmpty:     true,
}

// operatorAliases maps user-facing spellings to operators.
var operatorAliases = map[string]FilterOperator{
	"=":           OpEquals,
	"==":          OpEquals,
	"equals":      OpEquals,
	"!=":          OpNotEquals,
	"<>":          OpNotEquals,
	"notequals":   OpNotEquals,
	"notcontains": OpNotContains,
	"startswith":  OpStartsWith,
	"endswith":    OpEndsWith,
	">":           OpGreater,
	">=":          OpGreaterOrEqual,
	"<":           OpLess,
	"<=":          OpLessOrEqual,
	"isnull":      OpIsNull,
	"isnotnull":   OpIsNotNull,
	"isempty":     OpIsEmpty,
	"isnotempty":  OpIsNotEmpty,
}

// ParseFilterOperator resolves an operator name or alias.
func ParseFilterOperator(s string) (FilterOperator, error) {
	op := FilterOperator(strings.ToLower(strings.TrimSpace(s)))
	if validOperators[op] {
		return op, nil
	}
	if alias, ok := operatorAliases[strings.ReplaceAll(string(op), "_", "")]; ok {
		return alias, nil
	}
	return "", ErrInvalidFilter
}

// Unary reports whether the operator ignores the comparison value.
func (op FilterOperator) Unary() bool {
	switch op {
	case OpIsNull, OpIsNotNull, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// FilterCriteria is one condition on one column. Active criteria combine
// with AND.
type FilterCriteria struct {
	Column        string
	Operator      FilterOperator
	Value         Value
	CaseSensitive bool
}

// Validate checks the criterion is structurally sound.
func (c FilterCriteria) Validate() error {
	if c.Column == "" {
		return &DataError{Position: -1, Err: ErrInvalidColumn}
	}
	if !validOperators[c.Operator] {
		return &DataError{Position: -1, Column: c.Column, Err: ErrInvalidFilter}
	}
	return nil
}

// SortDirection is ascending or descending.
type SortDirection int

// Sort directions.
const (
	Ascending SortDirection = iota
	Descending
)

// SortKey is one column in a multi-column sort.
type SortKey struct {
	Column    string
	Direction SortDirection
}
