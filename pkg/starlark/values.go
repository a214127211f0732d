package starlark

import (
	"fmt"

	"github.com/smertiens/contemply/pkg/contemply"
	"go.starlark.net/starlark"
)

// ConvertToStarlark converts a template value to a Starlark value
func ConvertToStarlark(val contemply.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case contemply.StringValue:
		return starlark.String(string(v))
	case contemply.IntValue:
		return starlark.MakeInt64(int64(v))
	case contemply.FloatValue:
		return starlark.Float(float64(v))
	case contemply.BoolValue:
		return starlark.Bool(bool(v))
	case contemply.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item)
		}
		return starlark.NewList(items)
	case contemply.NoneValue:
		return starlark.None
	default:
		return starlark.String(val.String())
	}
}

// ConvertFromStarlark converts a Starlark value to a template value. Dicts
// have no template counterpart and are rejected.
func ConvertFromStarlark(val starlark.Value) (contemply.Value, error) {
	if val == nil || val == starlark.None {
		return contemply.NoneValue{}, nil
	}

	switch v := val.(type) {
	case starlark.String:
		return contemply.StringValue(string(v)), nil
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return contemply.IntValue(i), nil
		}
		// Too large for int64
		return contemply.StringValue(v.String()), nil
	case starlark.Float:
		return contemply.FloatValue(float64(v)), nil
	case starlark.Bool:
		return contemply.BoolValue(bool(v)), nil
	case starlark.Indexable:
		items := make(contemply.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := ConvertFromStarlark(v.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case *starlark.Dict:
		return nil, fmt.Errorf("cannot use a dict as a template value")
	default:
		return contemply.StringValue(val.String()), nil
	}
}

// ConvertArgs converts template function arguments for a Starlark call.
func ConvertArgs(args []contemply.Value) starlark.Tuple {
	out := make(starlark.Tuple, len(args))
	for i, a := range args {
		out[i] = ConvertToStarlark(a)
	}
	return out
}
