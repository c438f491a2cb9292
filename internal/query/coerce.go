package query

import (
	"cmp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// dateLayouts are tried in order when coercing text to a date-time.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// Fold returns s case-folded for case-insensitive comparison.
// ASCII input takes a fast path.
func Fold(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return cases.Fold().String(s)
		}
	}
	return strings.ToLower(s)
}

// AsNumber coerces v to a float. Text is parsed after trimming.
func AsNumber(v types.Value) (float64, bool) {
	switch v.Kind() {
	case types.KindNumber:
		n, _ := v.AsNumber()
		return n, true
	case types.KindText:
		s, _ := v.AsText()
		return parseNumber(s)
	case types.KindOpaque:
		return parseNumber(v.String())
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AsDateTime coerces v to a time. Text is parsed with common layouts.
func AsDateTime(v types.Value) (time.Time, bool) {
	switch v.Kind() {
	case types.KindDateTime:
		t, _ := v.AsDateTime()
		return t, true
	case types.KindText:
		s, _ := v.AsText()
		return parseDateTime(s)
	case types.KindOpaque:
		return parseDateTime(v.String())
	default:
		return time.Time{}, false
	}
}

func parseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AsBool coerces v to a boolean. Text accepts strconv.ParseBool forms.
func AsBool(v types.Value) (bool, bool) {
	switch v.Kind() {
	case types.KindBool:
		b, _ := v.AsBool()
		return b, true
	case types.KindText:
		s, _ := v.AsText()
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		return b, err == nil
	default:
		return false, false
	}
}

// Compare orders two values. Null sorts before everything. Values of the
// same orderable kind compare directly (text case-insensitively, with an
// ordinal tie-break); otherwise both are coerced to numbers, then to
// date-times, and finally compared as folded strings.
func Compare(a, b types.Value) int {
	an, bn := a.IsNull(), b.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}

	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case types.KindNumber:
			x, _ := a.AsNumber()
			y, _ := b.AsNumber()
			return cmp.Compare(x, y)
		case types.KindBool:
			x, _ := a.AsBool()
			y, _ := b.AsBool()
			return compareBool(x, y)
		case types.KindDateTime:
			x, _ := a.AsDateTime()
			y, _ := b.AsDateTime()
			return x.Compare(y)
		case types.KindText:
			x, _ := a.AsText()
			y, _ := b.AsText()
			return compareText(x, y)
		}
	}
	return coerceCompare(a, b)
}

// coerceCompare compares values of different kinds: number, then
// date-time, then folded string.
func coerceCompare(a, b types.Value) int {
	if x, ok := AsNumber(a); ok {
		if y, ok := AsNumber(b); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := AsDateTime(a); ok {
		if y, ok := AsDateTime(b); ok {
			return x.Compare(y)
		}
	}
	return compareText(a.String(), b.String())
}

func compareText(x, y string) int {
	if c := strings.Compare(Fold(x), Fold(y)); c != 0 {
		return c
	}
	return strings.Compare(x, y)
}

func compareBool(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	default:
		return 1
	}
}

// Orderable reports whether v can take part in a sort without falling
// back to string rendering: natively orderable kinds, or values that
// coerce to a number or date-time.
func Orderable(v types.Value) bool {
	switch v.Kind() {
	case types.KindText, types.KindNumber, types.KindBool, types.KindDateTime:
		return true
	case types.KindOpaque:
		if _, ok := AsNumber(v); ok {
			return true
		}
		_, ok := AsDateTime(v)
		return ok
	default:
		return false
	}
}
