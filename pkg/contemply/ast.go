package contemply

// Node is any AST node of a parsed template. The set of nodes is closed;
// the interpreter dispatches on the concrete type.
type Node interface {
	Pos() Position
	node()
}

type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (*nodeBase) node()           {}

// Template is the root node produced by Parse.
type Template struct {
	nodeBase
	Nodes []Node

	src *Source
}

// Source returns the text the template was parsed from.
func (t *Template) Source() *Source { return t.src }

// ContentLine is a line of literal text, interpolated when executed.
type ContentLine struct {
	nodeBase
	Text string
}

// Variable references a symbol, optionally indexed: name or name[idx].
type Variable struct {
	nodeBase
	Name  string
	Index Node
}

// String is a string literal.
type String struct {
	nodeBase
	Value string
}

// Num is an integer or float literal.
type Num struct {
	nodeBase
	Value Value
}

// ListLit is a list literal: [a, b, c].
type ListLit struct {
	nodeBase
	Items []Node
}

// ArgumentList holds the arguments of a function call.
type ArgumentList struct {
	nodeBase
	Args []Node
}

// FuncCall invokes an internal or provider function.
type FuncCall struct {
	nodeBase
	Name string
	Args *ArgumentList
}

// AssignOp distinguishes = from +=.
type AssignOp int

const (
	AssignSet AssignOp = iota
	AssignAppend
)

func (op AssignOp) String() string {
	if op == AssignAppend {
		return "+="
	}
	return "="
}

// Assignment binds or appends to a variable.
type Assignment struct {
	nodeBase
	Name  string
	Op    AssignOp
	Value Node
}

// BinaryExpr is an expression with a single binary operator.
type BinaryExpr struct {
	nodeBase
	Left  Node
	Op    Kind
	Right Node
}

// IfArm is one if or elseif branch.
type IfArm struct {
	Cond Node
	Body []Node
}

// IfBlock is an if/elseif/else chain. Else is nil when absent.
type IfBlock struct {
	nodeBase
	Arms []IfArm
	Else []Node
}

// While repeats Body while Cond holds.
type While struct {
	nodeBase
	Cond Node
	Body []Node
}

// For binds Item to each element of List in turn.
type For struct {
	nodeBase
	Item string
	List Node
	Body []Node
}

type Break struct {
	nodeBase
}

// NoOp is produced for lines that carry no statement.
type NoOp struct {
	nodeBase
}

// FileBlockStart redirects following content to a named target.
// CreateDirs is nil when not given.
type FileBlockStart struct {
	nodeBase
	Target     Node
	CreateDirs Node
}

// FileBlockEnd redirects content back to the default target.
type FileBlockEnd struct {
	nodeBase
}

// OutputExpr appends interpolated text to the current target: -> "text".
type OutputExpr struct {
	nodeBase
	Text Node
}

// PromptKind selects how a Prompt asks the user.
type PromptKind int

const (
	PromptInput PromptKind = iota
	PromptChoose
	PromptCollect
)

func (k PromptKind) String() string {
	switch k {
	case PromptChoose:
		return "choose"
	case PromptCollect:
		return "collect"
	}
	return "input"
}

// Prompt asks the user for a value. It is an expression.
type Prompt struct {
	nodeBase
	Kind     PromptKind
	Question string
	Options  []string
}

// Setting changes an interpreter setting such as StartMarker.
type Setting struct {
	nodeBase
	Name  string
	Value string
}

// Echo prints a line to the console.
type Echo struct {
	nodeBase
	Text string
}

// Section is one "--- Contemply" block: header directives then body.
type Section struct {
	nodeBase
	Header []Node
	Body   []Node
}
