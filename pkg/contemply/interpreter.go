package contemply

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// DefaultMaxLoopRuns caps while loops unless Config says otherwise.
const DefaultMaxLoopRuns = 10000

// Setting names understood by the interpreter.
const (
	SettingOutput      = "Output"
	SettingStartMarker = "StartMarker"
	SettingEndMarker   = "EndMarker"
	SettingFilename    = "Filename"
)

var knownSettings = map[string]bool{
	SettingOutput:      true,
	SettingStartMarker: true,
	SettingEndMarker:   true,
	SettingFilename:    true,
}

// Config configures an Interpreter. The zero value is usable.
type Config struct {
	Registry *Registry
	Prompter Prompter
	Stdout   io.Writer
	Logger   *slog.Logger
	// WorkDir is the base directory output paths must stay in. Defaults to
	// the process working directory.
	WorkDir     string
	MaxLoopRuns int
	StartMarker string
	EndMarker   string
	Filters     Filters
	// Vars are bound before every run.
	Vars map[string]Value
}

// Interpreter executes templates. It is not safe for concurrent use.
type Interpreter struct {
	cfg Config

	symbols  map[string]Value
	builtins map[string]Value
	settings map[string]string
	interp   Interpolator

	out        *Output
	target     string
	baseTarget string

	loopsRunning int
	breaking     bool
	stopped      *ExitError
}

func NewInterpreter(cfg Config) *Interpreter {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxLoopRuns <= 0 {
		cfg.MaxLoopRuns = DefaultMaxLoopRuns
	}
	if cfg.StartMarker == "" {
		cfg.StartMarker = DefaultStartMarker
	}
	if cfg.Filters == nil {
		cfg.Filters = DefaultFilters()
	}
	if cfg.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkDir = wd
		}
	}
	in := &Interpreter{cfg: cfg}
	in.reset()
	return in
}

func (in *Interpreter) reset() {
	in.symbols = map[string]Value{}
	for k, v := range in.cfg.Vars {
		in.symbols[k] = v
	}
	in.builtins = in.cfg.Registry.Builtins()
	for k, v := range coreBuiltins {
		in.builtins[k] = v
	}
	in.settings = map[string]string{}
	in.interp = Interpolator{
		Start:   in.cfg.StartMarker,
		End:     in.cfg.EndMarker,
		Lookup:  in.lookup,
		Filters: in.cfg.Filters,
	}
	in.out = NewOutput()
	in.target = DefaultTarget
	in.baseTarget = DefaultTarget
	in.loopsRunning = 0
	in.breaking = false
	in.stopped = nil
}

// Run executes t and returns the rendered targets. When the template calls
// exit() the result is nil and the error is an *ExitError.
func (in *Interpreter) Run(t *Template) (*Output, error) {
	in.reset()
	err := in.execBlock(t.Nodes)
	if in.stopped != nil {
		return nil, in.stopped
	}
	if err != nil {
		return nil, attachSource(err, t.src)
	}
	return in.out, nil
}

// Get returns a variable bound by the last run.
func (in *Interpreter) Get(name string) (Value, bool) {
	v, ok := in.symbols[name]
	return v, ok
}

// Symbols returns a copy of the symbol table.
func (in *Interpreter) Symbols() map[string]Value {
	out := make(map[string]Value, len(in.symbols))
	for k, v := range in.symbols {
		out[k] = v
	}
	return out
}

func (in *Interpreter) lookup(name string) (Value, error) {
	if v, ok := in.builtins[name]; ok {
		return v, nil
	}
	if v, ok := in.symbols[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("Unknown variable: %q", name)
}

func (in *Interpreter) emit(line string) {
	t := in.out.Target(in.target)
	t.Lines = append(t.Lines, line)
}

func (in *Interpreter) interpolate(pos Position, text string) (string, error) {
	s, err := in.interp.Interpolate(text)
	if err != nil {
		return "", WrapParserError(pos, err)
	}
	return s, nil
}

func (in *Interpreter) execBlock(nodes []Node) error {
	for _, n := range nodes {
		if in.breaking || in.stopped != nil {
			return nil
		}
		if err := in.exec(n); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) exec(n Node) error {
	switch t := n.(type) {
	case *ContentLine:
		s, err := in.interpolate(t.Pos(), t.Text)
		if err != nil {
			return err
		}
		in.emit(s)
	case *Assignment:
		return in.execAssignment(t)
	case *FuncCall:
		_, err := in.call(t)
		return err
	case *IfBlock:
		for _, arm := range t.Arms {
			ok, err := in.truth(arm.Cond)
			if err != nil {
				return err
			}
			if ok {
				return in.execBlock(arm.Body)
			}
		}
		return in.execBlock(t.Else)
	case *While:
		return in.execWhile(t)
	case *For:
		return in.execFor(t)
	case *Break:
		if in.loopsRunning == 0 {
			return NewParserErrorf(t.Pos(), "Unexpected BREAK: no surrounding loop found")
		}
		in.breaking = true
	case *NoOp:
	case *FileBlockStart:
		return in.execFileStart(t)
	case *FileBlockEnd:
		in.target = in.baseTarget
	case *OutputExpr:
		v, err := in.eval(t.Text)
		if err != nil {
			return err
		}
		s, err := in.interpolate(t.Pos(), v.String())
		if err != nil {
			return err
		}
		in.emit(s)
	case *Setting:
		return in.applySetting(t)
	case *Echo:
		fmt.Fprintln(in.cfg.Stdout, t.Text)
	case *Section:
		return in.execSection(t)
	default:
		return NewParserErrorf(n.Pos(), "Cannot execute %T", n)
	}
	return nil
}

func (in *Interpreter) execAssignment(a *Assignment) error {
	if _, ok := in.builtins[a.Name]; ok {
		return NewParserErrorf(a.Pos(), "Cannot assign to reserved name %q", a.Name)
	}
	v, err := in.eval(a.Value)
	if err != nil {
		return err
	}
	if a.Op == AssignSet {
		in.symbols[a.Name] = v
		return nil
	}
	cur, err := in.lookup(a.Name)
	if err != nil {
		return WrapParserError(a.Pos(), err)
	}
	list, ok := cur.(ListValue)
	if !ok {
		return NewParserErrorf(a.Pos(), "Expected variable of type 'list'.")
	}
	next := make(ListValue, len(list), len(list)+1)
	copy(next, list)
	if more, ok := v.(ListValue); ok {
		next = append(next, more...)
	} else {
		next = append(next, v)
	}
	in.symbols[a.Name] = next
	return nil
}

func (in *Interpreter) truth(cond Node) (bool, error) {
	v, err := in.eval(cond)
	if err != nil {
		return false, err
	}
	return v.Truth(), nil
}

func (in *Interpreter) execWhile(w *While) error {
	in.loopsRunning++
	defer func() { in.loopsRunning-- }()
	runs := 0
	for {
		ok, err := in.truth(w.Cond)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if runs >= in.cfg.MaxLoopRuns {
			return NewParserErrorf(w.Pos(), "Maximum loop iterations of %d reached.", in.cfg.MaxLoopRuns)
		}
		if err := in.execBlock(w.Body); err != nil {
			return err
		}
		runs++
		if in.stopped != nil {
			return nil
		}
		if in.breaking {
			in.breaking = false
			return nil
		}
	}
}

func (in *Interpreter) execFor(f *For) error {
	v, err := in.eval(f.List)
	if err != nil {
		return err
	}
	list, ok := v.(ListValue)
	if !ok {
		return NewParserErrorf(f.Pos(), "Cannot iterate %q, expected a list.", ExprString(f.List))
	}
	items := make(ListValue, len(list))
	copy(items, list)

	in.loopsRunning++
	defer func() { in.loopsRunning-- }()
	for _, item := range items {
		in.symbols[f.Item] = item
		if err := in.execBlock(f.Body); err != nil {
			return err
		}
		if in.stopped != nil {
			return nil
		}
		if in.breaking {
			in.breaking = false
			return nil
		}
	}
	return nil
}

func (in *Interpreter) execFileStart(f *FileBlockStart) error {
	v, err := in.eval(f.Target)
	if err != nil {
		return err
	}
	name, err := in.interpolate(f.Pos(), v.String())
	if err != nil {
		return err
	}
	createDirs := false
	if f.CreateDirs != nil {
		cv, err := in.eval(f.CreateDirs)
		if err != nil {
			return err
		}
		b, ok := cv.(BoolValue)
		if !ok {
			return NewParserErrorf(f.CreateDirs.Pos(), "createFolders must be True or False, got %s", cv.Type())
		}
		createDirs = bool(b)
	}
	if !IsSpecialTarget(name) {
		if _, err := SecurePath(in.cfg.WorkDir, name); err != nil {
			return err
		}
	}
	t := in.out.Target(name)
	t.CreateDirs = t.CreateDirs || createDirs
	in.target = name
	return nil
}

func (in *Interpreter) applySetting(s *Setting) error {
	if !knownSettings[s.Name] {
		return NewParserErrorf(s.Pos(), "Unknown setting: %q", s.Name)
	}
	value := s.Value
	if s.Name == SettingOutput || s.Name == SettingFilename {
		var err error
		if value, err = in.interpolate(s.Pos(), value); err != nil {
			return err
		}
	}
	in.settings[s.Name] = value
	switch s.Name {
	case SettingStartMarker:
		in.interp.Start = value
	case SettingEndMarker:
		in.interp.End = value
	}
	return nil
}

func (in *Interpreter) execSection(s *Section) error {
	in.settings = map[string]string{}
	in.interp.Start = SectionMarker
	in.interp.End = SectionMarker
	in.target = DefaultTarget
	in.baseTarget = DefaultTarget

	if err := in.execBlock(s.Header); err != nil {
		return err
	}
	if in.stopped != nil {
		return nil
	}

	target := DefaultTarget
	switch {
	case in.settings[SettingOutput] != "":
		target = in.settings[SettingOutput]
	case in.settings[SettingFilename] != "":
		if in.out.Filename == "" {
			in.out.Filename = in.settings[SettingFilename]
		} else {
			target = in.settings[SettingFilename]
		}
	}
	if !IsSpecialTarget(target) {
		if _, err := SecurePath(in.cfg.WorkDir, target); err != nil {
			return err
		}
	}
	in.out.Target(target)
	in.target = target
	in.baseTarget = target

	err := in.execBlock(s.Body)
	in.target = DefaultTarget
	in.baseTarget = DefaultTarget
	return err
}

func (in *Interpreter) eval(n Node) (Value, error) {
	switch t := n.(type) {
	case *String:
		return StringValue(t.Value), nil
	case *Num:
		return t.Value, nil
	case *ListLit:
		out := make(ListValue, 0, len(t.Items))
		for _, it := range t.Items {
			v, err := in.eval(it)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *Variable:
		return in.evalVariable(t)
	case *FuncCall:
		return in.call(t)
	case *BinaryExpr:
		return in.evalBinary(t)
	case *Prompt:
		return in.evalPrompt(t)
	}
	return nil, NewParserErrorf(n.Pos(), "Cannot evaluate %T", n)
}

func (in *Interpreter) evalVariable(v *Variable) (Value, error) {
	val, err := in.lookup(v.Name)
	if err != nil {
		return nil, WrapParserError(v.Pos(), err)
	}
	if v.Index == nil {
		return val, nil
	}
	list, ok := val.(ListValue)
	if !ok {
		return nil, NewParserErrorf(v.Pos(), "Variable %q is not a list.", v.Name)
	}
	iv, err := in.eval(v.Index)
	if err != nil {
		return nil, err
	}
	idx, ok := iv.(IntValue)
	if !ok {
		return nil, NewParserErrorf(v.Index.Pos(), "List index must be an int, got %s", iv.Type())
	}
	if idx < 0 || int(idx) >= len(list) {
		return nil, NewParserErrorf(v.Index.Pos(), "Index %d out of range for %q", idx, v.Name)
	}
	return list[idx], nil
}

func (in *Interpreter) evalBinary(b *BinaryExpr) (Value, error) {
	left, err := in.eval(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(b.Right)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case COMP_EQ:
		return BoolValue(Equal(left, right)), nil
	case COMP_NOT_EQ:
		return BoolValue(!Equal(left, right)), nil
	case COMP_LT, COMP_GT, COMP_LT_EQ, COMP_GT_EQ:
		c, err := Compare(left, right)
		if err != nil {
			return nil, WrapParserError(b.Pos(), err)
		}
		switch b.Op {
		case COMP_LT:
			return BoolValue(c < 0), nil
		case COMP_GT:
			return BoolValue(c > 0), nil
		case COMP_LT_EQ:
			return BoolValue(c <= 0), nil
		}
		return BoolValue(c >= 0), nil
	}
	v, err := Arith(b.Op, left, right)
	if err != nil {
		return nil, WrapParserError(b.Pos(), err)
	}
	return v, nil
}

func (in *Interpreter) evalPrompt(p *Prompt) (Value, error) {
	pr := in.cfg.Prompter
	if pr == nil {
		return nil, NewParserErrorf(p.Pos(), "Cannot ask %q: no interactive input available", p.Question)
	}
	switch p.Kind {
	case PromptChoose:
		s, err := pr.Choose(p.Question, p.Options)
		if err != nil {
			return nil, err
		}
		return StringValue(s), nil
	case PromptCollect:
		items, err := pr.Collect(p.Question)
		if err != nil {
			return nil, err
		}
		return FromGo(items), nil
	}
	s, err := pr.Input(p.Question)
	if err != nil {
		return nil, err
	}
	return StringValue(s), nil
}

// call evaluates the arguments of f, interpolating string literals, and
// dispatches to an internal function or the registry.
func (in *Interpreter) call(f *FuncCall) (Value, error) {
	var args []Value
	if f.Args != nil {
		for _, a := range f.Args.Args {
			v, err := in.eval(a)
			if err != nil {
				return nil, err
			}
			if _, ok := a.(*String); ok {
				s, err := in.interpolate(a.Pos(), v.String())
				if err != nil {
					return nil, err
				}
				v = StringValue(s)
			}
			args = append(args, v)
		}
	}

	switch f.Name {
	case "exit":
		msg := joinArgs(args)
		if msg != "" {
			fmt.Fprintln(in.cfg.Stdout, msg)
		}
		in.stopped = &ExitError{Message: msg}
		return NoneValue{}, nil
	case "output":
		if len(args) != 1 {
			return nil, NewParserErrorf(f.Pos(), "output() expects exactly 1 argument.")
		}
		in.emit(args[0].String())
		return NoneValue{}, nil
	case "_debugDumpStack":
		in.dumpStack()
		return NoneValue{}, nil
	}

	fn, ok := in.cfg.Registry.Lookup(f.Name)
	if !ok {
		return nil, NewParserErrorf(f.Pos(), "Unknown function: %s", f.Name)
	}
	in.cfg.Logger.Debug("calling function", "name", f.Name, "args", len(args))
	v, err := fn(&runtime{in: in}, args)
	if err != nil {
		return nil, WrapParserError(f.Pos(), err)
	}
	if v == nil {
		v = NoneValue{}
	}
	return v, nil
}

func joinArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func (in *Interpreter) dumpStack() {
	names := make([]string, 0, len(in.symbols))
	for k := range in.symbols {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(in.cfg.Stdout, "%s = %s\n", k, Repr(in.symbols[k]))
	}
}

// runtime exposes the interpreter to template functions.
type runtime struct {
	in *Interpreter
}

func (r *runtime) Get(name string) (Value, error) { return r.in.lookup(name) }

func (r *runtime) Set(name string, v Value) error {
	if _, ok := r.in.builtins[name]; ok {
		return fmt.Errorf("Cannot assign to reserved name %q", name)
	}
	r.in.symbols[name] = v
	return nil
}

func (r *runtime) Has(name string) bool {
	_, err := r.in.lookup(name)
	return err == nil
}

func (r *runtime) Emit(line string) { r.in.emit(line) }

func (r *runtime) SetOutputFile(name string) { r.in.out.Filename = name }

func (r *runtime) Stop(message string) { r.in.stopped = &ExitError{Message: message} }

func (r *runtime) Interpolate(text string) (string, error) { return r.in.interp.Interpolate(text) }

func (r *runtime) Prompter() Prompter { return r.in.cfg.Prompter }

func (r *runtime) Stdout() io.Writer { return r.in.cfg.Stdout }

func (r *runtime) Logger() *slog.Logger { return r.in.cfg.Logger }

func (r *runtime) WorkDir() string { return r.in.cfg.WorkDir }

// Render parses and runs text in one step.
func Render(text string, opts ParseOptions, cfg Config) (*Output, error) {
	if cfg.StartMarker == "" {
		cfg.StartMarker = opts.StartMarker
	}
	if cfg.EndMarker == "" {
		cfg.EndMarker = opts.EndMarker
	}
	t, err := Parse(text, opts)
	if err != nil {
		return nil, err
	}
	return NewInterpreter(cfg).Run(t)
}

// IsExit reports whether err ended a run through exit().
func IsExit(err error) bool {
	var e *ExitError
	return errors.As(err, &e)
}
