package starlark

import (
	"errors"
	"fmt"

	"github.com/smertiens/contemply/pkg/contemply"
	"go.starlark.net/starlark"
)

const runtimeKey = "contemply.runtime"

var errNoRuntime = errors.New("only available while a template function runs")

// runtimeOf returns the template runtime bound to the thread.
func runtimeOf(thread *starlark.Thread) (contemply.Runtime, error) {
	rt, ok := thread.Local(runtimeKey).(contemply.Runtime)
	if !ok || rt == nil {
		return nil, errNoRuntime
	}
	return rt, nil
}

// CreateBuiltins returns the functions bundle code may call to reach the
// running template. They fail when called at load time.
func CreateBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"get": starlark.NewBuiltin("get", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			var def starlark.Value = starlark.None
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			if !rt.Has(name) {
				return def, nil
			}
			v, err := rt.Get(name)
			if err != nil {
				return nil, err
			}
			return ConvertToStarlark(v), nil
		}),

		"set": starlark.NewBuiltin("set", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			var value starlark.Value
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "value", &value); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			v, err := ConvertFromStarlark(value)
			if err != nil {
				return nil, err
			}
			return starlark.None, rt.Set(name, v)
		}),

		"emit": starlark.NewBuiltin("emit", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var line string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &line); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			rt.Emit(line)
			return starlark.None, nil
		}),

		"interpolate": starlark.NewBuiltin("interpolate", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var text string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &text); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			s, err := rt.Interpolate(text)
			if err != nil {
				return nil, err
			}
			return starlark.String(s), nil
		}),

		"ask": starlark.NewBuiltin("ask", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var question string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &question); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			p := rt.Prompter()
			if p == nil {
				return nil, fmt.Errorf("%s: no interactive input available", fn.Name())
			}
			answer, err := p.Input(question)
			if err != nil {
				return nil, err
			}
			return starlark.String(answer), nil
		}),

		"confirm": starlark.NewBuiltin("confirm", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var question string
			def := true
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "question", &question, "default?", &def); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			p := rt.Prompter()
			if p == nil {
				return nil, fmt.Errorf("%s: no interactive input available", fn.Name())
			}
			ok, err := p.Confirm(question, def)
			if err != nil {
				return nil, err
			}
			return starlark.Bool(ok), nil
		}),

		"stop": starlark.NewBuiltin("stop", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var message string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0, &message); err != nil {
				return nil, err
			}
			rt, err := runtimeOf(thread)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			rt.Stop(message)
			return starlark.None, nil
		}),
	}
}
