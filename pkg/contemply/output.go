package contemply

const (
	// DefaultTarget collects content that is not redirected elsewhere.
	DefaultTarget = "__default__"
	// ConsoleTarget is printed instead of written.
	ConsoleTarget = "@console"
	// NullTarget is discarded.
	NullTarget = "@null"
)

// IsSpecialTarget reports whether name does not denote a file path.
func IsSpecialTarget(name string) bool {
	return name == DefaultTarget || name == ConsoleTarget || name == NullTarget
}

// Target is one destination of rendered lines.
type Target struct {
	Name       string
	Lines      []string
	CreateDirs bool
}

// Output is the result of a run: named targets in first-use order.
type Output struct {
	// Filename is where the default target goes, if the template said so.
	Filename string

	targets map[string]*Target
	order   []string
}

func NewOutput() *Output {
	o := &Output{targets: map[string]*Target{}}
	o.Target(DefaultTarget)
	return o
}

// Target returns the named target, creating it on first use.
func (o *Output) Target(name string) *Target {
	if t, ok := o.targets[name]; ok {
		return t
	}
	t := &Target{Name: name}
	o.targets[name] = t
	o.order = append(o.order, name)
	return t
}

// Lines returns the lines of target name, or nil.
func (o *Output) Lines(name string) []string {
	if t, ok := o.targets[name]; ok {
		return t.Lines
	}
	return nil
}

// Targets lists all targets in first-use order.
func (o *Output) Targets() []*Target {
	out := make([]*Target, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.targets[name])
	}
	return out
}

// Map returns a copy of all targets keyed by name.
func (o *Output) Map() map[string][]string {
	m := make(map[string][]string, len(o.targets))
	for name, t := range o.targets {
		lines := make([]string, len(t.Lines))
		copy(lines, t.Lines)
		m[name] = lines
	}
	return m
}
