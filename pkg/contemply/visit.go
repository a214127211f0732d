package contemply

import (
	"bytes"
	"fmt"
	"strings"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk visits n and then its children depth-first.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	walkAll := func(nodes []Node) error {
		for _, c := range nodes {
			if c == nil {
				continue
			}
			if err := Walk(v, c); err != nil {
				return err
			}
		}
		return nil
	}
	switch t := n.(type) {
	case *Template:
		return walkAll(t.Nodes)
	case *Section:
		if err := walkAll(t.Header); err != nil {
			return err
		}
		return walkAll(t.Body)
	case *IfBlock:
		for _, arm := range t.Arms {
			if err := walkAll(append([]Node{arm.Cond}, arm.Body...)); err != nil {
				return err
			}
		}
		return walkAll(t.Else)
	case *While:
		return walkAll(append([]Node{t.Cond}, t.Body...))
	case *For:
		return walkAll(append([]Node{t.List}, t.Body...))
	case *Assignment:
		return walkAll([]Node{t.Value})
	case *BinaryExpr:
		return walkAll([]Node{t.Left, t.Right})
	case *FuncCall:
		if t.Args != nil {
			return walkAll(t.Args.Args)
		}
	case *ListLit:
		return walkAll(t.Items)
	case *Variable:
		return walkAll([]Node{t.Index})
	case *FileBlockStart:
		return walkAll([]Node{t.Target, t.CreateDirs})
	case *OutputExpr:
		return walkAll([]Node{t.Text})
	}
	return nil
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Pretty returns a line-oriented string representation of the AST.
func Pretty(t *Template) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, t)
	return buf.String()
}

// ExprString renders an expression node in template syntax.
func ExprString(n Node) string {
	switch t := n.(type) {
	case nil:
		return ""
	case *String:
		return fmt.Sprintf("%q", t.Value)
	case *Num:
		return t.Value.String()
	case *Variable:
		if t.Index != nil {
			return t.Name + "[" + ExprString(t.Index) + "]"
		}
		return t.Name
	case *ListLit:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = ExprString(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *FuncCall:
		var parts []string
		if t.Args != nil {
			for _, a := range t.Args.Args {
				parts = append(parts, ExprString(a))
			}
		}
		return t.Name + "(" + strings.Join(parts, ", ") + ")"
	case *BinaryExpr:
		return ExprString(t.Left) + " " + t.Op.Symbol() + " " + ExprString(t.Right)
	case *Prompt:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Question)
	}
	return fmt.Sprintf("%T", n)
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() { buf.WriteString(strings.Repeat(" ", indent)) }
	block := func(nodes []Node) {
		for _, c := range nodes {
			ppNode(buf, indent+2, c)
		}
	}
	switch t := n.(type) {
	case *Template:
		ind()
		buf.WriteString("Template\n")
		block(t.Nodes)
	case *Section:
		ind()
		buf.WriteString("Section\n")
		ind()
		buf.WriteString("Header\n")
		block(t.Header)
		ind()
		buf.WriteString("Body\n")
		block(t.Body)
	case *ContentLine:
		ind()
		fmt.Fprintf(buf, "Content(%q)\n", t.Text)
	case *Assignment:
		ind()
		fmt.Fprintf(buf, "Assign(%s %s %s)\n", t.Name, t.Op, ExprString(t.Value))
	case *FuncCall, *BinaryExpr, *Variable, *String, *Num, *ListLit:
		ind()
		fmt.Fprintf(buf, "Expr(%s)\n", ExprString(n))
	case *IfBlock:
		for i, arm := range t.Arms {
			ind()
			if i == 0 {
				fmt.Fprintf(buf, "If(%s)\n", ExprString(arm.Cond))
			} else {
				fmt.Fprintf(buf, "ElseIf(%s)\n", ExprString(arm.Cond))
			}
			block(arm.Body)
		}
		if t.Else != nil {
			ind()
			buf.WriteString("Else\n")
			block(t.Else)
		}
	case *While:
		ind()
		fmt.Fprintf(buf, "While(%s)\n", ExprString(t.Cond))
		block(t.Body)
	case *For:
		ind()
		fmt.Fprintf(buf, "For(%s in %s)\n", t.Item, ExprString(t.List))
		block(t.Body)
	case *Break:
		ind()
		buf.WriteString("Break\n")
	case *NoOp:
		ind()
		buf.WriteString("NoOp\n")
	case *FileBlockStart:
		ind()
		if t.CreateDirs != nil {
			fmt.Fprintf(buf, "FileStart(%s, %s)\n", ExprString(t.Target), ExprString(t.CreateDirs))
		} else {
			fmt.Fprintf(buf, "FileStart(%s)\n", ExprString(t.Target))
		}
	case *FileBlockEnd:
		ind()
		buf.WriteString("FileEnd\n")
	case *OutputExpr:
		ind()
		fmt.Fprintf(buf, "Output(%s)\n", ExprString(t.Text))
	case *Prompt:
		ind()
		fmt.Fprintf(buf, "Prompt(%s)\n", ExprString(t))
	case *Setting:
		ind()
		fmt.Fprintf(buf, "Setting(%s = %q)\n", t.Name, t.Value)
	case *Echo:
		ind()
		fmt.Fprintf(buf, "Echo(%q)\n", t.Text)
	}
}
