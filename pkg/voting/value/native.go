package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Native converts v into the plain Go representation used by the expression
// evaluator and by encoders: string, float64, int, bool, []any or nil.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		return v.f
	case KindInt:
		return int(v.i)
	case KindBoolean:
		return v.b
	case KindTuple:
		out := make([]any, len(v.tuple))
		for i, e := range v.tuple {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// FromNative converts a plain Go value into a Value.
// Any slice or array becomes a Tuple; nil becomes Empty.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Empty(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Int(int64(t)), nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return Value{}, fmt.Errorf("tuple element %d: %w", i, err)
			}
			out[i] = ev
		}
		return Value{kind: KindTuple, tuple: out}, nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := range out {
			ev, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("tuple element %d: %w", i, err)
			}
			out[i] = ev
		}
		return Value{kind: KindTuple, tuple: out}, nil
	}
	return Value{}, &UnsupportedError{Type: fmt.Sprintf("%T", x)}
}

// UnsupportedError is returned by FromNative for Go values outside the value domain.
type UnsupportedError struct {
	Type string
}

// Error returns the error message.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported value type %s", e.Type)
}

// MarshalJSON encodes v as its native JSON counterpart.
// Non-finite floats have no JSON form and are encoded as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonNative(v))
}

// UnmarshalJSON decodes a JSON scalar or array into v.
// Integral numbers decode as Int, all other numbers as Float.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := fromJSON(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func jsonNative(v Value) any {
	switch v.kind {
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return formatFloat(v.f)
		}
		return v.f
	case KindTuple:
		out := make([]any, len(v.tuple))
		for i, e := range v.tuple {
			out[i] = jsonNative(e)
		}
		return out
	default:
		return v.Native()
	}
}

func fromJSON(raw any) (Value, error) {
	switch t := raw.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			ev, err := fromJSON(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Value{kind: KindTuple, tuple: out}, nil
	default:
		return FromNative(raw)
	}
}
