// Package starlark loads extension bundles: Starlark scripts whose public
// functions become template functions and whose "builtins" dict adds
// read-only values such as Yes and No.
package starlark

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/smertiens/contemply/pkg/contemply"
	"github.com/smertiens/contemply/pkg/validator"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile describes a bundle directory.
	ManifestFile = "bundle.yaml"
	// DefaultMain is the script loaded when a manifest names none.
	DefaultMain = "bundle.star"

	builtinsGlobal = "builtins"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// BundleError reports a bundle that could not be loaded.
type BundleError struct {
	Bundle string
	Err    error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("The bundle %q is not a valid contemply bundle: %v", e.Bundle, e.Err)
}

func (e *BundleError) Unwrap() error { return e.Err }

// Manifest is the content of bundle.yaml.
type Manifest struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Main        string `yaml:"main"`
	// Exports limits the functions a bundle offers. Empty means every
	// function whose name does not start with an underscore.
	Exports []string `yaml:"exports"`
}

func (m Manifest) Validate() error {
	return validator.All(
		validator.NotEmpty(m.Name, "name"),
		validator.MatchesPattern(m.Name, namePattern, "name"),
		validator.NotEmpty(m.Main, "main"),
		validator.NoDuplicates(m.Exports, "exports"),
		validator.Map(m.Exports, func(e, desc string) error { return validator.NotEmpty(e, desc) }, "exports"),
	)
}

// Bundle is a loaded extension. It implements contemply.Provider and
// contemply.BuiltinProvider.
type Bundle struct {
	Manifest

	functions map[string]starlark.Callable
	builtins  map[string]contemply.Value
}

// Load reads a bundle from a .star file or from a directory holding a
// bundle.yaml manifest.
func Load(path string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &BundleError{Bundle: path, Err: err}
	}

	var m Manifest
	script := path
	if info.IsDir() {
		if m, err = readManifest(filepath.Join(path, ManifestFile)); err != nil {
			return nil, &BundleError{Bundle: path, Err: err}
		}
		script = filepath.Join(path, m.Main)
	} else {
		m = Manifest{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Main: filepath.Base(path)}
		if err := m.Validate(); err != nil {
			return nil, &BundleError{Bundle: path, Err: err}
		}
	}

	src, err := os.ReadFile(script)
	if err != nil {
		return nil, &BundleError{Bundle: m.Name, Err: err}
	}
	b, err := loadSource(m, script, src, logger)
	if err != nil {
		return nil, &BundleError{Bundle: m.Name, Err: err}
	}
	logger.Debug("loaded bundle", "name", b.Name, "functions", len(b.functions), "builtins", len(b.builtins))
	return b, nil
}

// LoadSource builds a bundle from script text. Used for bundles that are
// not stored on disk.
func LoadSource(name, src string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := Manifest{Name: name, Main: name + ".star"}
	if err := m.Validate(); err != nil {
		return nil, &BundleError{Bundle: name, Err: err}
	}
	b, err := loadSource(m, m.Main, []byte(src), logger)
	if err != nil {
		return nil, &BundleError{Bundle: name, Err: err}
	}
	return b, nil
}

func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return m, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("%s: %w", ManifestFile, err)
	}
	return m, nil
}

func loadSource(m Manifest, filename string, src []byte, logger *slog.Logger) (*Bundle, error) {
	thread := &starlark.Thread{
		Name: "contemply:" + m.Name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, "bundle", m.Name)
		},
	}
	globals, err := starlark.ExecFile(thread, filename, src, CreateBuiltins())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	globals.Freeze()

	b := &Bundle{
		Manifest:  m,
		functions: map[string]starlark.Callable{},
		builtins:  map[string]contemply.Value{},
	}

	if len(m.Exports) > 0 {
		for _, name := range m.Exports {
			fn, ok := globals[name].(starlark.Callable)
			if !ok {
				return nil, fmt.Errorf("exported function %q is not defined", name)
			}
			b.functions[name] = fn
		}
	} else {
		for name, v := range globals {
			if fn, ok := v.(*starlark.Function); ok && !strings.HasPrefix(name, "_") {
				b.functions[name] = fn
			}
		}
	}

	if raw, ok := globals[builtinsGlobal]; ok {
		dict, ok := raw.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%q must be a dict, got %s", builtinsGlobal, raw.Type())
		}
		for _, item := range dict.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("%q keys must be strings, got %s", builtinsGlobal, item[0].Type())
			}
			v, err := ConvertFromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("builtin %q: %w", string(key), err)
			}
			b.builtins[string(key)] = v
		}
	}
	return b, nil
}

// Lookup implements contemply.Provider.
func (b *Bundle) Lookup(name string) (contemply.Function, bool) {
	fn, ok := b.functions[name]
	if !ok {
		return nil, false
	}
	return b.call(name, fn), true
}

// Builtins implements contemply.BuiltinProvider.
func (b *Bundle) Builtins() map[string]contemply.Value {
	out := make(map[string]contemply.Value, len(b.builtins))
	for k, v := range b.builtins {
		out[k] = v
	}
	return out
}

// Functions lists the function names the bundle offers.
func (b *Bundle) Functions() []string {
	names := make([]string, 0, len(b.functions))
	for name := range b.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Bundle) call(name string, fn starlark.Callable) contemply.Function {
	return func(rt contemply.Runtime, args []contemply.Value) (contemply.Value, error) {
		thread := &starlark.Thread{
			Name: "contemply:" + b.Name,
			Print: func(_ *starlark.Thread, msg string) {
				_, _ = fmt.Fprintln(rt.Stdout(), msg)
			},
		}
		thread.SetLocal(runtimeKey, rt)

		res, err := starlark.Call(thread, fn, ConvertArgs(args), nil)
		if err != nil {
			var evalErr *starlark.EvalError
			if errors.As(err, &evalErr) {
				rt.Logger().Debug("bundle function failed", "bundle", b.Name, "function", name, "backtrace", evalErr.Backtrace())
			}
			return nil, fmt.Errorf("%s(): %w", name, err)
		}
		return ConvertFromStarlark(res)
	}
}

// Register appends bundles to reg in order. Earlier bundles keep
// precedence over later ones.
func Register(reg *contemply.Registry, bundles ...*Bundle) {
	for _, b := range bundles {
		reg.Register(b)
	}
}
