package contemply

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value is a template runtime value. The set is closed: StringValue,
// IntValue, FloatValue, BoolValue, ListValue and NoneValue.
type Value interface {
	String() string
	Truth() bool
	Type() string
}

// NoneValue represents the absence of a value.
type NoneValue struct{}

func (NoneValue) String() string { return "None" }
func (NoneValue) Truth() bool    { return false }
func (NoneValue) Type() string   { return "None" }

// BoolValue wraps a boolean. It prints as True or False.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b BoolValue) Truth() bool  { return bool(b) }
func (b BoolValue) Type() string { return "bool" }

// IntValue wraps a 64-bit integer.
type IntValue int64

func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }
func (i IntValue) Truth() bool    { return i != 0 }
func (i IntValue) Type() string   { return "int" }

// FloatValue wraps a 64-bit float. Whole numbers keep a trailing ".0".
type FloatValue float64

func (f FloatValue) String() string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
func (f FloatValue) Truth() bool  { return f != 0 }
func (f FloatValue) Type() string { return "float" }

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(s) > 0 }
func (s StringValue) Type() string   { return "str" }

// ListValue is a flat list of values. It prints as ['a', 'b'].
type ListValue []Value

func (l ListValue) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(Repr(v))
	}
	b.WriteByte(']')
	return b.String()
}
func (l ListValue) Truth() bool  { return len(l) > 0 }
func (l ListValue) Type() string { return "list" }

// Repr quotes strings and prints every other value as is.
func Repr(v Value) string {
	if s, ok := v.(StringValue); ok {
		if strings.Contains(string(s), "'") && !strings.Contains(string(s), `"`) {
			return `"` + string(s) + `"`
		}
		return "'" + strings.ReplaceAll(string(s), "'", `\'`) + "'"
	}
	return v.String()
}

// FromGo converts a Go value to a Value.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case []string:
		out := make(ListValue, len(t))
		for i, s := range t {
			out[i] = StringValue(s)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make(ListValue, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	}
	return StringValue(fmt.Sprintf("%v", v))
}

// ToGo converts a Value to plain Go data.
func ToGo(v Value) any {
	switch t := v.(type) {
	case StringValue:
		return string(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case BoolValue:
		return bool(t)
	case ListValue:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = ToGo(it)
		}
		return out
	}
	return nil
}

func numeric(v Value) (float64, bool) {
	switch t := v.(type) {
	case IntValue:
		return float64(t), true
	case FloatValue:
		return float64(t), true
	}
	return 0, false
}

// Equal compares values. Ints and floats compare numerically; values of
// other differing types are never equal.
func Equal(a, b Value) bool {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x == y
		}
		return false
	}
	switch x := a.(type) {
	case StringValue:
		y, ok := b.(StringValue)
		return ok && x == y
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x == y
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case ListValue:
		y, ok := b.(ListValue)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numbers or two strings. It returns -1, 0 or 1.
func Compare(a, b Value) (int, error) {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(StringValue); ok {
		if y, ok := b.(StringValue); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", a.Type(), b.Type())
}

// Arith applies + - * / to two values. Division always yields a float.
func Arith(op Kind, a, b Value) (Value, error) {
	if op == ADD {
		if x, ok := a.(StringValue); ok {
			if y, ok := b.(StringValue); ok {
				return x + y, nil
			}
		}
		if x, ok := a.(ListValue); ok {
			if y, ok := b.(ListValue); ok {
				out := make(ListValue, 0, len(x)+len(y))
				return append(append(out, x...), y...), nil
			}
		}
	}
	xi, aInt := a.(IntValue)
	yi, bInt := b.(IntValue)
	x, aNum := numeric(a)
	y, bNum := numeric(b)
	if !aNum || !bNum {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op.Symbol(), a.Type(), b.Type())
	}
	switch op {
	case ADD:
		if aInt && bInt {
			return intResult(op, xi, yi)
		}
		return FloatValue(x + y), nil
	case SUB:
		if aInt && bInt {
			return intResult(op, xi, yi)
		}
		return FloatValue(x - y), nil
	case MULT:
		if aInt && bInt {
			return intResult(op, xi, yi)
		}
		return FloatValue(x * y), nil
	case DIV:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return FloatValue(x / y), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// intResult applies op to two integers and fails instead of wrapping around.
func intResult(op Kind, x, y IntValue) (Value, error) {
	var r IntValue
	ok := true
	switch op {
	case ADD:
		r = x + y
		ok = (r > x) == (y > 0)
	case SUB:
		r = x - y
		ok = (r < x) == (y > 0)
	case MULT:
		r = x * y
		ok = x == 0 || (r/x == y && !(x == -1 && y == math.MinInt64))
	}
	if !ok {
		return nil, fmt.Errorf("integer overflow in %d %s %d", x, op.Symbol(), y)
	}
	return r, nil
}
