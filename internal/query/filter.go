package query

import (
	"cmp"
	"strings"
	"time"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Predicate reports whether a row satisfies a compiled condition.
type Predicate func(types.RowData) bool

// Matches evaluates one criterion against one row.
func Matches(row types.RowData, c types.FilterCriteria) bool {
	return compileOne(c)(row)
}

// MatchesAll reports whether a row satisfies every criterion. No criteria
// match every row.
func MatchesAll(row types.RowData, criteria []types.FilterCriteria) bool {
	return Compile(criteria)(row)
}

// Compile turns criteria into a single AND predicate. The comparison value
// is coerced and folded once up front so evaluating millions of rows does
// not repeat that work.
func Compile(criteria []types.FilterCriteria) Predicate {
	switch len(criteria) {
	case 0:
		return func(types.RowData) bool { return true }
	case 1:
		return compileOne(criteria[0])
	}
	preds := make([]Predicate, len(criteria))
	for i, c := range criteria {
		preds[i] = compileOne(c)
	}
	return func(row types.RowData) bool {
		for _, p := range preds {
			if !p(row) {
				return false
			}
		}
		return true
	}
}

// target is a comparison value with its coercions precomputed.
type target struct {
	raw       types.Value
	text      string
	folded    string
	num       float64
	isNum     bool
	date      time.Time
	isDate    bool
	boolean   bool
	isBool    bool
	sensitive bool
}

func newTarget(v types.Value, sensitive bool) target {
	t := target{raw: v, text: v.String(), sensitive: sensitive}
	t.folded = Fold(t.text)
	t.num, t.isNum = AsNumber(v)
	t.date, t.isDate = AsDateTime(v)
	if v.Kind() == types.KindBool || t.folded == "true" || t.folded == "false" {
		t.boolean, t.isBool = AsBool(v)
	}
	return t
}

func (t target) str(v types.Value) (cell, want string) {
	if t.sensitive {
		return v.String(), t.text
	}
	return Fold(v.String()), t.folded
}

func compileOne(c types.FilterCriteria) Predicate {
	col := c.Column
	switch c.Operator {
	case types.OpIsNull:
		return func(r types.RowData) bool { return r.Value(col).IsNull() }
	case types.OpIsNotNull:
		return func(r types.RowData) bool { return !r.Value(col).IsNull() }
	case types.OpIsEmpty:
		return func(r types.RowData) bool { return r.Value(col).IsBlank() }
	case types.OpIsNotEmpty:
		return func(r types.RowData) bool { return !r.Value(col).IsBlank() }
	}

	t := newTarget(c.Value, c.CaseSensitive)
	switch c.Operator {
	case types.OpEquals:
		return func(r types.RowData) bool { return t.equal(r.Value(col)) }
	case types.OpNotEquals:
		return func(r types.RowData) bool { return !t.equal(r.Value(col)) }
	case types.OpContains:
		return func(r types.RowData) bool { return t.contains(r.Value(col)) }
	case types.OpNotContains:
		return func(r types.RowData) bool { return !t.contains(r.Value(col)) }
	case types.OpStartsWith:
		return func(r types.RowData) bool {
			v := r.Value(col)
			if v.IsNull() {
				return false
			}
			cell, want := t.str(v)
			return strings.HasPrefix(cell, want)
		}
	case types.OpEndsWith:
		return func(r types.RowData) bool {
			v := r.Value(col)
			if v.IsNull() {
				return false
			}
			cell, want := t.str(v)
			return strings.HasSuffix(cell, want)
		}
	case types.OpGreater:
		return t.ordered(col, func(c int) bool { return c > 0 })
	case types.OpGreaterOrEqual:
		return t.ordered(col, func(c int) bool { return c >= 0 })
	case types.OpLess:
		return t.ordered(col, func(c int) bool { return c < 0 })
	case types.OpLessOrEqual:
		return t.ordered(col, func(c int) bool { return c <= 0 })
	default:
		// Unknown operators match nothing.
		return func(types.RowData) bool { return false }
	}
}

// equal compares a cell with the target: numbers, then dates, then
// booleans, then strings.
func (t target) equal(v types.Value) bool {
	if v.IsNull() || t.raw.IsNull() {
		return v.IsNull() && t.raw.IsNull()
	}
	if t.isNum {
		if n, ok := AsNumber(v); ok {
			return n == t.num
		}
	}
	if t.isDate {
		if d, ok := AsDateTime(v); ok {
			return d.Equal(t.date)
		}
	}
	if t.isBool {
		if b, ok := AsBool(v); ok {
			return b == t.boolean
		}
	}
	cell, want := t.str(v)
	return cell == want
}

func (t target) contains(v types.Value) bool {
	if v.IsNull() {
		return false
	}
	cell, want := t.str(v)
	return strings.Contains(cell, want)
}

func (t target) ordered(col string, test func(int) bool) Predicate {
	return func(r types.RowData) bool {
		c, ok := t.order(r.Value(col))
		return ok && test(c)
	}
}

// order compares a cell against the target. Null cells and null targets
// are not ordered.
func (t target) order(v types.Value) (int, bool) {
	if v.IsNull() || t.raw.IsNull() {
		return 0, false
	}
	if t.isNum {
		if n, ok := AsNumber(v); ok {
			return cmp.Compare(n, t.num), true
		}
	}
	if t.isDate {
		if d, ok := AsDateTime(v); ok {
			return d.Compare(t.date), true
		}
	}
	cell, want := t.str(v)
	return strings.Compare(cell, want), true
}
