package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds. The set is closed; every
// switch over Kind in this module handles all six cases.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindDateTime
	KindOpaque
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindOpaque:
		return "opaque"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single cell value. The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	t    time.Time
	o    any
}

// Null is the null cell value.
var Null = Value{}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int returns a numeric value from an integer.
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// DateTime returns a date-time value.
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// Opaque wraps an arbitrary object. Opaque values compare by their
// fmt.Sprint rendering.
func Opaque(o any) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindOpaque, o: o}
}

// ValueOf converts a dynamically typed Go value into a Value.
// Unknown types become Opaque.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case Value:
		return x
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case time.Time:
		return DateTime(x)
	case *time.Time:
		if x == nil {
			return Null
		}
		return DateTime(*x)
	default:
		return Opaque(v)
	}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsText returns the string held by a Text value.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsNumber returns the float held by a Number value.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsBool returns the boolean held by a Bool value.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsDateTime returns the time held by a DateTime value.
func (v Value) AsDateTime() (time.Time, bool) { return v.t, v.kind == KindDateTime }

// AsOpaque returns the object held by an Opaque value.
func (v Value) AsOpaque() (any, bool) { return v.o, v.kind == KindOpaque }

// Interface returns the underlying Go value (nil for Null).
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindDateTime:
		return v.t
	case KindOpaque:
		return v.o
	default:
		return nil
	}
}

// String renders v for display and for string-comparison fallback.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		if v.n == math.Trunc(v.n) && math.Abs(v.n) < 1e15 {
			return strconv.FormatInt(int64(v.n), 10)
		}
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDateTime:
		return v.t.Format(time.RFC3339)
	case KindOpaque:
		return fmt.Sprint(v.o)
	default:
		return ""
	}
}

// IsBlank reports whether v counts as empty: Null, whitespace-only text,
// or an opaque zero-length collection.
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.s) == ""
	case KindOpaque:
		return isEmptyCollection(v.o)
	default:
		return false
	}
}

// Equal reports strict equality of kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	case KindDateTime:
		return v.t.Equal(o.t)
	default:
		return fmt.Sprint(v.o) == fmt.Sprint(o.o)
	}
}

func isEmptyCollection(o any) bool {
	switch x := o.(type) {
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case []Value:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}
