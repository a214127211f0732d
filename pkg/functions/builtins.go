// Package functions is the standard function library available to every
// template: string helpers, folder creation and interactive prompts.
package functions

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/smertiens/contemply/pkg/console"
	"github.com/smertiens/contemply/pkg/contemply"
)

// DefaultFolderMode is used by makeFolders when no mode is given.
const DefaultFolderMode fs.FileMode = 0o755

// Builtins returns the standard library as a provider.
func Builtins() contemply.FuncMap {
	return contemply.FuncMap{
		"echo":        echo,
		"uppercase":   stringFunc("uppercase", strings.ToUpper),
		"lowercase":   stringFunc("lowercase", strings.ToLower),
		"capitalize":  stringFunc("capitalize", contemply.Capitalize),
		"contains":    contains,
		"replace":     replace,
		"makeFolders": makeFolders,
		"ask":         ask,
		"choose":      choose,
		"yesno":       yesno,
		"collect":     collect,
		"setOutput":   setOutput,
	}
}

func echo(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"echo", "str, int, float, bool, list"}, args); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintln(rt.Stdout(), args[0].String())
	return nil, nil
}

func stringFunc(name string, f func(string) string) contemply.Function {
	return func(_ contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
		if err := CheckArgs(Signature{name, "str"}, args); err != nil {
			return nil, err
		}
		return contemply.StringValue(f(args[0].String())), nil
	}
}

func contains(_ contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"contains", "str", "str"}, args); err != nil {
		return nil, err
	}
	return contemply.BoolValue(strings.Contains(args[0].String(), args[1].String())), nil
}

// replace substitutes every occurrence of the search string, or of each
// string in a search list, with the replacement.
func replace(_ contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"replace", "str", "str, list", "str"}, args); err != nil {
		return nil, err
	}
	result := args[0].String()
	search := []contemply.Value{args[1]}
	if l, ok := args[1].(contemply.ListValue); ok {
		search = l
	}
	for _, s := range search {
		result = strings.ReplaceAll(result, s.String(), args[2].String())
	}
	return contemply.StringValue(result), nil
}

// makeFolders creates a folder and its parents below the working
// directory. The optional mode is an octal string such as "0700".
func makeFolders(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"makeFolders", "str", "*str"}, args); err != nil {
		return nil, err
	}
	path, err := contemply.SecurePath(rt.WorkDir(), args[0].String())
	if err != nil {
		return nil, err
	}
	mode := DefaultFolderMode
	if len(args) == 2 {
		m, err := strconv.ParseUint(args[1].String(), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("makeFolders() expects an octal mode, got %q", args[1].String())
		}
		mode = fs.FileMode(m)
	}
	if err := os.MkdirAll(path, mode); err != nil {
		return nil, fmt.Errorf("creating folder %s: %w", args[0].String(), err)
	}
	rt.Logger().Debug("created folder", "path", path, "mode", mode)
	_, _ = fmt.Fprintln(rt.Stdout(), console.Success("Folder "+console.Highlight(args[0].String())+" has been created"))
	return nil, nil
}

func prompter(rt contemply.Runtime, name string) (contemply.Prompter, error) {
	p := rt.Prompter()
	if p == nil {
		return nil, fmt.Errorf("%s() needs interactive input, but none is available", name)
	}
	return p, nil
}

// store binds v to the variable named by the optional argument at idx.
func store(rt contemply.Runtime, args []contemply.Value, idx int, v contemply.Value) error {
	if len(args) <= idx {
		return nil
	}
	return rt.Set(args[idx].String(), v)
}

func ask(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"ask", "str", "*str"}, args); err != nil {
		return nil, err
	}
	p, err := prompter(rt, "ask")
	if err != nil {
		return nil, err
	}
	answer, err := p.Input(args[0].String())
	if err != nil {
		return nil, err
	}
	v := contemply.StringValue(answer)
	return v, store(rt, args, 1, v)
}

func choose(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"choose", "str", "list", "*str"}, args); err != nil {
		return nil, err
	}
	p, err := prompter(rt, "choose")
	if err != nil {
		return nil, err
	}
	list := args[1].(contemply.ListValue)
	if len(list) == 0 {
		return nil, fmt.Errorf("choose() needs at least one option")
	}
	options := make([]string, len(list))
	for i, o := range list {
		options[i] = o.String()
	}
	answer, err := p.Choose(args[0].String(), options)
	if err != nil {
		return nil, err
	}
	v := contemply.StringValue(answer)
	return v, store(rt, args, 2, v)
}

// yesno asks a yes/no question. The optional default is "Yes" or "No" and
// defaults to "Yes".
func yesno(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"yesno", "str", "*str", "*str"}, args); err != nil {
		return nil, err
	}
	def := true
	if len(args) == 3 {
		switch strings.ToLower(args[2].String()) {
		case "y", "yes":
		case "n", "no":
			def = false
		default:
			return nil, fmt.Errorf("yesno() default must be Yes or No, got %q", args[2].String())
		}
	}
	p, err := prompter(rt, "yesno")
	if err != nil {
		return nil, err
	}
	answer, err := p.Confirm(args[0].String(), def)
	if err != nil {
		return nil, err
	}
	v := contemply.BoolValue(answer)
	return v, store(rt, args, 1, v)
}

func collect(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"collect", "str", "*str"}, args); err != nil {
		return nil, err
	}
	p, err := prompter(rt, "collect")
	if err != nil {
		return nil, err
	}
	items, err := p.Collect(args[0].String())
	if err != nil {
		return nil, err
	}
	v := contemply.FromGo(items)
	return v, store(rt, args, 1, v)
}

// setOutput names the file the default target is written to.
//
// Deprecated: use a ">> file" block or the Filename setting.
func setOutput(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
	if err := CheckArgs(Signature{"setOutput", "str"}, args); err != nil {
		return nil, err
	}
	rt.Logger().Warn("setOutput() is deprecated, use a file block or the Filename setting instead")
	if _, err := contemply.SecurePath(rt.WorkDir(), args[0].String()); err != nil {
		return nil, err
	}
	rt.SetOutputFile(args[0].String())
	return nil, nil
}
