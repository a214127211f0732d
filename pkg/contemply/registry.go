package contemply

import (
	"io"
	"log/slog"
)

// Prompter asks the user for input. Implementations block until answered.
type Prompter interface {
	Input(question string) (string, error)
	Confirm(question string, def bool) (bool, error)
	Choose(question string, options []string) (string, error)
	Collect(question string) ([]string, error)
}

// Runtime is the capability handed to template functions.
type Runtime interface {
	Get(name string) (Value, error)
	Set(name string, v Value) error
	Has(name string) bool
	// Emit appends a line to the current output target.
	Emit(line string)
	// SetOutputFile names the file the default target is written to.
	SetOutputFile(name string)
	// Stop ends the run after the current statement.
	Stop(message string)
	Interpolate(text string) (string, error)
	Prompter() Prompter
	Stdout() io.Writer
	Logger() *slog.Logger
	WorkDir() string
}

// Function is the calling convention for template functions. Arguments are
// already evaluated.
type Function func(rt Runtime, args []Value) (Value, error)

// Provider resolves function names.
type Provider interface {
	Lookup(name string) (Function, bool)
}

// BuiltinProvider is implemented by providers that also contribute
// read-only builtin values such as Yes or No.
type BuiltinProvider interface {
	Builtins() map[string]Value
}

// FuncMap is the simplest Provider.
type FuncMap map[string]Function

func (m FuncMap) Lookup(name string) (Function, bool) {
	fn, ok := m[name]
	return fn, ok
}

// Registry is an ordered list of providers. The first provider that knows
// a name wins.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Register appends p; earlier providers keep precedence.
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

func (r *Registry) Lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	for _, p := range r.providers {
		if fn, ok := p.Lookup(name); ok {
			return fn, true
		}
	}
	return nil, false
}

// Builtins merges the builtins of all providers. Earlier providers win.
func (r *Registry) Builtins() map[string]Value {
	out := map[string]Value{}
	if r == nil {
		return out
	}
	for i := len(r.providers) - 1; i >= 0; i-- {
		if bp, ok := r.providers[i].(BuiltinProvider); ok {
			for k, v := range bp.Builtins() {
				out[k] = v
			}
		}
	}
	return out
}

var coreBuiltins = map[string]Value{
	"True":  BoolValue(true),
	"False": BoolValue(false),
	"None":  NoneValue{},
}

func isBuiltinName(name string) bool {
	_, ok := coreBuiltins[name]
	return ok
}
