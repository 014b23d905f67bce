package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindEmpty is the zero Value; it carries no payload.
	KindEmpty Kind = iota
	KindString
	KindFloat
	KindInt
	KindBoolean
	KindTuple
)

// String returns the name of the kind as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBoolean:
		return "boolean"
	case KindTuple:
		return "tuple"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the closed value domain of the voting language.
// A Value is immutable once constructed and safe to copy.
// The zero Value is Empty.
type Value struct {
	kind  Kind
	s     string
	f     float64
	i     int64
	b     bool
	tuple []Value
}

// Empty returns the empty value.
func Empty() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Tuple returns a tuple of the given values. The slice is copied.
func Tuple(values ...Value) Value {
	t := make([]Value, len(values))
	copy(t, values)
	return Value{kind: KindTuple, tuple: t}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether v is the empty value.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsNumber returns v as a float64. Ints are widened.
func (v Value) AsNumber() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, &TypeError{Expected: "number", Actual: v}
	}
}

// AsFloat returns the payload of a Float value.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, &TypeError{Expected: KindFloat.String(), Actual: v}
	}
	return v.f, nil
}

// AsInt returns the payload of an Int value.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, &TypeError{Expected: KindInt.String(), Actual: v}
	}
	return v.i, nil
}

// AsBoolean returns the payload of a Boolean value.
func (v Value) AsBoolean() (bool, error) {
	if v.kind != KindBoolean {
		return false, &TypeError{Expected: KindBoolean.String(), Actual: v}
	}
	return v.b, nil
}

// AsString returns the payload of a String value.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", &TypeError{Expected: KindString.String(), Actual: v}
	}
	return v.s, nil
}

// AsTuple returns the elements of a Tuple value. The returned slice must not be modified.
func (v Value) AsTuple() ([]Value, error) {
	if v.kind != KindTuple {
		return nil, &TypeError{Expected: KindTuple.String(), Actual: v}
	}
	return v.tuple, nil
}

// Equal reports whether v and o hold the same variant and payload.
// Floats compare by value, so NaN is never equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindString:
		return v.s == o.s
	case KindFloat:
		return v.f == o.f
	case KindInt:
		return v.i == o.i
	case KindBoolean:
		return v.b == o.b
	case KindTuple:
		if len(v.tuple) != len(o.tuple) {
			return false
		}
		for i := range v.tuple {
			if !v.tuple[i].Equal(o.tuple[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v in expression-literal form.
func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return "()"
	case KindString:
		return strconv.Quote(v.s)
	case KindFloat:
		return formatFloat(v.f)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindTuple:
		parts := make([]string, len(v.tuple))
		for i, e := range v.tuple {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "?"
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// TypeError is returned when a Value does not hold the variant a coercion requires.
type TypeError struct {
	Expected string
	Actual   Value
}

// Error returns the error message.
func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, got %s %s", e.Expected, e.Actual.kind, e.Actual)
}
