package contemply

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ParseOptions configures Parse.
type ParseOptions struct {
	// Filename is used in error messages.
	Filename string
	// StartMarker and EndMarker delimit variables in content lines. They
	// default to "$" and "" (prefix mode). Inline prompts are recognized
	// as StartMarker followed directly by "(".
	StartMarker string
	EndMarker   string
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.StartMarker == "" {
		o.StartMarker = DefaultStartMarker
	}
	return o
}

// InlinePrefix prefixes the hidden variables created for inline prompts.
const InlinePrefix = "__inline_"

// Parse parses template text. Templates whose first line is "--- Contemply"
// are read with the section grammar; all others with the line grammar.
func Parse(text string, opts ParseOptions) (*Template, error) {
	opts = opts.withDefaults()
	src := NewSource(opts.Filename, text)
	var (
		nodes []Node
		err   error
	)
	if isSectionTemplate(src) {
		nodes, err = newSectionParser(src).parse()
	} else {
		p := newParser(src, opts)
		nodes, _, err = p.parseBlock(nil)
	}
	if err != nil {
		return nil, attachSource(err, src)
	}
	return &Template{nodeBase: nodeBase{pos: Position{File: opts.Filename, Line: 1, Column: 1}}, Nodes: nodes, src: src}, nil
}

// ParseFile reads and parses the template at path.
func ParseFile(path string, opts ParseOptions) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	if opts.Filename == "" {
		opts.Filename = path
	}
	return Parse(string(b), opts)
}

type parser struct {
	src       *Source
	lex       *Lexer
	opts      ParseOptions
	blockMode bool
	newID     func() string
}

func newParser(src *Source, opts ParseOptions) *parser {
	return &parser{
		src:  src,
		lex:  NewLexer(src),
		opts: opts,
		newID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

func (p *parser) next() (Token, error) { return p.lex.NextToken(false) }
func (p *parser) peek() Kind          { return p.lex.Peek() }

func (p *parser) expect(k Kind, context string) (Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Kind != k {
		return tok, NewParserErrorf(tok.Pos, "Unexpected token %s %s, expected %s", tok.Kind, context, k)
	}
	return tok, nil
}

func isLineEnd(k Kind) bool { return k == NEWLINE || k == EOF || k == COMMENT }

// endStatement requires that nothing but a comment follows on the line.
func (p *parser) endStatement() error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if !isLineEnd(tok.Kind) {
		return NewParserErrorf(tok.Pos, "Unexpected token %s, expected end of line", tok.Kind)
	}
	return nil
}

// parseBlock parses lines until a command line starts with a token in
// until, or the source ends. The terminator is returned with the cursor
// right behind it so the caller can read its arguments.
func (p *parser) parseBlock(until map[Kind]bool) (nodes []Node, term Token, err error) {
	for !p.src.AtEnd() {
		text := p.src.Text()
		p.src.SetCol(0)
		trimmed := strings.TrimLeft(text, " \t")

		switch {
		case strings.HasPrefix(trimmed, "#::"):
			p.blockMode = !p.blockMode
			p.src.NextLine()
		case !p.blockMode && strings.HasPrefix(text, "#%"):
			p.src.NextLine()
		case p.blockMode || strings.HasPrefix(text, "#:"):
			tok, err := p.next()
			if err != nil {
				return nil, Token{}, err
			}
			if tok.Kind == CMD_LINE_START {
				if tok, err = p.next(); err != nil {
					return nil, Token{}, err
				}
			}
			if isLineEnd(tok.Kind) {
				if tok.Kind != COMMENT {
					nodes = append(nodes, &NoOp{nodeBase{tok.Pos}})
				}
				p.src.NextLine()
				continue
			}
			if until[tok.Kind] {
				return nodes, tok, nil
			}
			stmt, err := p.parseStatement(tok)
			if err != nil {
				return nil, Token{}, err
			}
			if err := p.endStatement(); err != nil {
				return nil, Token{}, err
			}
			nodes = append(nodes, stmt)
			p.src.NextLine()
		default:
			stmts, err := p.parseContent(text)
			if err != nil {
				return nil, Token{}, err
			}
			nodes = append(nodes, stmts...)
			p.src.NextLine()
		}
	}
	return nodes, Token{Kind: EOF, Pos: p.src.Pos()}, nil
}

func (p *parser) parseStatement(tok Token) (Node, error) {
	switch tok.Kind {
	case IF:
		return p.parseIf(tok)
	case WHILE:
		return p.parseWhile(tok)
	case FOR:
		return p.parseFor(tok)
	case BREAK:
		return &Break{nodeBase{tok.Pos}}, nil
	case FILE_START:
		return p.parseFileStart(tok)
	case FILE_END:
		return &FileBlockEnd{nodeBase{tok.Pos}}, nil
	case OUTPUT:
		text, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &OutputExpr{nodeBase: nodeBase{tok.Pos}, Text: text}, nil
	case SYMBOL:
		switch p.peek() {
		case ASSIGN, ASSIGN_PLUS:
			return p.parseAssignment(tok)
		case LPAR:
			return p.parseFuncCall(tok)
		}
		next, err := p.next()
		if err != nil {
			return nil, err
		}
		return nil, NewParserErrorf(next.Pos, "Unexpected token %s after %q", next.Kind, tok.Value)
	case ELSE, ELSEIF, ENDIF, ENDWHILE, ENDFOR:
		return nil, NewParserErrorf(tok.Pos, "Unexpected %s", tok.Kind)
	}
	return nil, NewParserErrorf(tok.Pos, "Unknown statement start: %s", tok.Kind)
}

func (p *parser) parseAssignment(name Token) (Node, error) {
	if isBuiltinName(name.Value) {
		return nil, NewParserErrorf(name.Pos, "Cannot assign to reserved name %q", name.Value)
	}
	opTok, err := p.next()
	if err != nil {
		return nil, err
	}
	op := AssignSet
	if opTok.Kind == ASSIGN_PLUS {
		op = AssignAppend
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Assignment{nodeBase: nodeBase{name.Pos}, Name: name.Value, Op: op, Value: val}, nil
}

// parseExpression reads a value optionally followed by one binary operator
// and a second value.
func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if !p.peek().IsOperator() {
		return left, nil
	}
	op, err := p.next()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{nodeBase: nodeBase{left.Pos()}, Left: left, Op: op.Kind, Right: right}, nil
}

// parseCondition turns short-form conditions like "if x" into x == True.
func (p *parser) parseCondition() (Node, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return shortCondition(expr), nil
}

func shortCondition(expr Node) Node {
	if be, ok := expr.(*BinaryExpr); ok {
		switch be.Op {
		case COMP_EQ, COMP_NOT_EQ, COMP_LT, COMP_GT, COMP_LT_EQ, COMP_GT_EQ:
			return expr
		}
	}
	return &BinaryExpr{
		nodeBase: nodeBase{expr.Pos()},
		Left:     expr,
		Op:       COMP_EQ,
		Right:    &Variable{nodeBase: nodeBase{expr.Pos()}, Name: "True"},
	}
}

func (p *parser) parseValue() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case STRING:
		return &String{nodeBase: nodeBase{tok.Pos}, Value: tok.Value}, nil
	case INTEGER, FLOAT:
		return numberNode(tok, false)
	case SUB:
		if k := p.peek(); k == INTEGER || k == FLOAT {
			num, err := p.next()
			if err != nil {
				return nil, err
			}
			return numberNode(num, true)
		}
	case LSQRBR:
		return p.parseList(tok)
	case LPAR:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAR, "in parenthesized expression"); err != nil {
			return nil, err
		}
		return expr, nil
	case SYMBOL:
		switch p.peek() {
		case LPAR:
			return p.parseFuncCall(tok)
		case LSQRBR:
			if _, err := p.next(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RSQRBR, "in index"); err != nil {
				return nil, err
			}
			return &Variable{nodeBase: nodeBase{tok.Pos}, Name: tok.Value, Index: idx}, nil
		}
		return &Variable{nodeBase: nodeBase{tok.Pos}, Name: tok.Value}, nil
	}
	return nil, NewParserErrorf(tok.Pos, "Unexpected token %s, expected a value", tok.Kind)
}

func numberNode(tok Token, negative bool) (Node, error) {
	text := tok.Value
	if negative {
		text = "-" + text
	}
	if tok.Kind == FLOAT {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, NewParserErrorf(tok.Pos, "Invalid number %q", text)
		}
		return &Num{nodeBase: nodeBase{tok.Pos}, Value: FloatValue(f)}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, NewParserErrorf(tok.Pos, "Invalid number %q", text)
	}
	return &Num{nodeBase: nodeBase{tok.Pos}, Value: IntValue(i)}, nil
}

func (p *parser) parseList(open Token) (Node, error) {
	list := &ListLit{nodeBase: nodeBase{open.Pos}}
	if p.peek() == RSQRBR {
		_, err := p.next()
		return list, err
	}
	for {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == COMMA:
		case tok.Kind == RSQRBR:
			return list, nil
		case isLineEnd(tok.Kind):
			return nil, NewParserErrorf(tok.Pos, "Unexpected end of line in list, expected ]")
		default:
			return nil, NewParserErrorf(tok.Pos, "Unexpected token %s in list", tok.Kind)
		}
	}
}

func (p *parser) parseFuncCall(name Token) (Node, error) {
	open, err := p.expect(LPAR, "after function name")
	if err != nil {
		return nil, err
	}
	call := &FuncCall{nodeBase: nodeBase{name.Pos}, Name: name.Value, Args: &ArgumentList{nodeBase: nodeBase{open.Pos}}}
	if p.peek() == RPAR {
		_, err := p.next()
		return call, err
	}
	for {
		if isLineEnd(p.peek()) {
			tok, _ := p.next()
			return nil, NewParserErrorf(tok.Pos, "Unexpected end of line in arguments of %s(), expected )", name.Value)
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args.Args = append(call.Args.Args, arg)
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == COMMA:
		case tok.Kind == RPAR:
			return call, nil
		case isLineEnd(tok.Kind):
			return nil, NewParserErrorf(tok.Pos, "Unexpected end of line in arguments of %s(), expected )", name.Value)
		default:
			return nil, NewParserErrorf(tok.Pos, "Unexpected token %s in arguments of %s()", tok.Kind, name.Value)
		}
	}
}

// openBlock finishes the current command line and parses the block below
// it up to one of the terminators.
func (p *parser) openBlock(until map[Kind]bool) ([]Node, Token, error) {
	if err := p.endStatement(); err != nil {
		return nil, Token{}, err
	}
	p.src.NextLine()
	return p.parseBlock(until)
}

func (p *parser) parseIf(start Token) (Node, error) {
	terms := map[Kind]bool{ELSEIF: true, ELSE: true, ENDIF: true}
	n := &IfBlock{nodeBase: nodeBase{start.Pos}}

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, term, err := p.openBlock(terms)
	if err != nil {
		return nil, err
	}
	n.Arms = append(n.Arms, IfArm{Cond: cond, Body: body})

	for term.Kind == ELSEIF {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		body, term, err = p.openBlock(terms)
		if err != nil {
			return nil, err
		}
		n.Arms = append(n.Arms, IfArm{Cond: cond, Body: body})
	}
	if term.Kind == ELSE {
		body, term, err = p.openBlock(map[Kind]bool{ENDIF: true})
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = []Node{}
		}
		n.Else = body
	}
	if term.Kind != ENDIF {
		return nil, NewParserErrorf(start.Pos, "Expected ENDIF to close IF, got %s", term.Kind)
	}
	return n, nil
}

func (p *parser) parseWhile(start Token) (Node, error) {
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, term, err := p.openBlock(map[Kind]bool{ENDWHILE: true})
	if err != nil {
		return nil, err
	}
	if term.Kind != ENDWHILE {
		return nil, NewParserErrorf(start.Pos, "Expected ENDWHILE to close WHILE, got %s", term.Kind)
	}
	return &While{nodeBase: nodeBase{start.Pos}, Cond: cond, Body: body}, nil
}

func (p *parser) parseFor(start Token) (Node, error) {
	item, err := p.expect(SYMBOL, "in for loop")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(IN, "in for loop"); err != nil {
		return nil, err
	}
	list, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, term, err := p.openBlock(map[Kind]bool{ENDFOR: true})
	if err != nil {
		return nil, err
	}
	if term.Kind != ENDFOR {
		return nil, NewParserErrorf(start.Pos, "Expected ENDFOR to close FOR, got %s", term.Kind)
	}
	return &For{nodeBase: nodeBase{start.Pos}, Item: item.Value, List: list, Body: body}, nil
}

func (p *parser) parseFileStart(start Token) (Node, error) {
	target, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	n := &FileBlockStart{nodeBase: nodeBase{start.Pos}, Target: target}
	if p.peek() == COMMA {
		if _, err := p.next(); err != nil {
			return nil, err
		}
		if n.CreateDirs, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// parseContent turns a content line into a ContentLine, preceded by one
// hidden prompt assignment per inline prompt found in it.
func (p *parser) parseContent(text string) ([]Node, error) {
	var (
		nodes []Node
		out   strings.Builder
	)
	marker := p.opts.StartMarker
	open := marker + "("
	i := 0
	for {
		j := strings.Index(text[i:], open)
		if j < 0 {
			out.WriteString(text[i:])
			break
		}
		j += i
		if j > 0 && text[j-1] == '\\' {
			out.WriteString(text[i : j+len(open)])
			i = j + len(open)
			continue
		}
		question, end, ok, err := p.scanInline(text, j+len(open))
		if err != nil {
			return nil, err
		}
		if !ok {
			out.WriteString(text[i : j+len(open)])
			i = j + len(open)
			continue
		}
		name := InlinePrefix + p.newID()
		pos := p.src.PosAt(j)
		nodes = append(nodes, &Assignment{
			nodeBase: nodeBase{pos},
			Name:     name,
			Value:    &Prompt{nodeBase: nodeBase{pos}, Kind: PromptInput, Question: question},
		})
		out.WriteString(text[i:j])
		out.WriteString(marker + name + p.opts.EndMarker)
		i = end
	}
	nodes = append(nodes, &ContentLine{nodeBase: nodeBase{p.src.PosAt(0)}, Text: out.String()})
	return nodes, nil
}

// scanInline reads "'question' )" starting at i. ok is false when no
// quoted string follows, in which case the text is left alone.
func (p *parser) scanInline(text string, i int) (question string, end int, ok bool, err error) {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || (text[i] != '"' && text[i] != '\'') {
		return "", 0, false, nil
	}
	quote := text[i]
	closeAt := strings.IndexByte(text[i+1:], quote)
	if closeAt < 0 {
		return "", 0, false, NewParserErrorf(p.src.PosAt(i), "Unterminated string in inline content")
	}
	question = text[i+1 : i+1+closeAt]
	i = i + 1 + closeAt + 1
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || text[i] != ')' {
		return "", 0, false, NewParserErrorf(p.src.PosAt(i), "Inline content has additional characters after string delimiter")
	}
	return question, i + 1, true, nil
}
