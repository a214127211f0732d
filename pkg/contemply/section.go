package contemply

import (
	"regexp"
	"strings"
)

const (
	sectionStart     = "--- Contemply"
	sectionHeaderEnd = "---"
)

var (
	settingLine = regexp.MustCompile(`^(\w+)\s+is\s+(.*)$`)
	promptLine  = regexp.MustCompile(`^(\w+)\s*:\s*(.*)$`)
	assignLine  = regexp.MustCompile(`^(\w+)\s*=\s*(.*)$`)
	optionLine  = regexp.MustCompile(`^\s+-\s*(.*)$`)
	collectLine = regexp.MustCompile(`^\s+\.\.\.\s*$`)
	callLine    = regexp.MustCompile(`^!\s*\w+\(`)
)

func isSectionTemplate(src *Source) bool {
	return src.Len() > 0 && strings.TrimSpace(src.LineText(1)) == sectionStart
}

// sectionParser reads templates made of "--- Contemply" sections. Each
// section has a header of directives closed by "---" and a body of content
// and control lines. Expressions are read with the line grammar's parser.
type sectionParser struct {
	src  *Source
	expr *parser
}

func newSectionParser(src *Source) *sectionParser {
	return &sectionParser{src: src, expr: newParser(src, ParseOptions{}.withDefaults())}
}

func (p *sectionParser) parse() ([]Node, error) {
	var nodes []Node
	for !p.src.AtEnd() {
		if strings.TrimSpace(p.src.Text()) != sectionStart {
			return nil, NewParserErrorf(p.src.PosAt(0), "Expected %q", sectionStart)
		}
		sec, err := p.parseSection()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, sec)
	}
	return nodes, nil
}

func (p *sectionParser) parseSection() (*Section, error) {
	sec := &Section{nodeBase: nodeBase{p.src.PosAt(0)}}
	p.src.NextLine()

	closed := false
	for !p.src.AtEnd() {
		line := p.src.Text()
		if strings.TrimSpace(line) == sectionHeaderEnd {
			p.src.NextLine()
			closed = true
			break
		}
		n, err := p.parseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		if n != nil {
			sec.Header = append(sec.Header, n)
		}
	}
	if !closed {
		return nil, NewParserErrorf(sec.Pos(), "Expected %q to close the section header", sectionHeaderEnd)
	}

	body, _, err := p.parseBody(nil)
	if err != nil {
		return nil, err
	}
	sec.Body = body
	return sec, nil
}

// parseHeaderLine reads one directive and moves past it. Blank lines yield
// a nil node.
func (p *sectionParser) parseHeaderLine(line string) (Node, error) {
	pos := p.src.PosAt(0)
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		p.src.NextLine()
		return nil, nil
	case strings.HasPrefix(trimmed, "!"):
		return p.parseCallLine(line)
	}

	if m := settingLine.FindStringSubmatch(trimmed); m != nil && knownSettings[m[1]] {
		p.src.NextLine()
		return &Setting{nodeBase: nodeBase{pos}, Name: m[1], Value: unquote(strings.TrimSpace(m[2]))}, nil
	}
	if m := promptLine.FindStringSubmatch(trimmed); m != nil {
		prompt := &Prompt{nodeBase: nodeBase{pos}, Kind: PromptInput, Question: unquote(strings.TrimSpace(m[2]))}
		p.src.NextLine()
		for !p.src.AtEnd() {
			next := p.src.Text()
			if collectLine.MatchString(next) {
				prompt.Kind = PromptCollect
				p.src.NextLine()
				break
			}
			opt := optionLine.FindStringSubmatch(next)
			if opt == nil {
				break
			}
			prompt.Kind = PromptChoose
			prompt.Options = append(prompt.Options, unquote(strings.TrimSpace(opt[1])))
			p.src.NextLine()
		}
		return &Assignment{nodeBase: nodeBase{pos}, Name: m[1], Value: prompt}, nil
	}
	if m := assignLine.FindStringSubmatch(trimmed); m != nil {
		if isBuiltinName(m[1]) {
			return nil, NewParserErrorf(pos, "Cannot assign to reserved name %q", m[1])
		}
		col := strings.Index(line, "=") + 1
		value := p.headerValue(col, strings.TrimSpace(m[2]))
		p.src.NextLine()
		return &Assignment{nodeBase: nodeBase{pos}, Name: m[1], Value: value}, nil
	}

	p.src.NextLine()
	return &Echo{nodeBase: nodeBase{pos}, Text: line}, nil
}

// headerValue parses the right side of name = value. Values that are not
// an expression, or are a bare word, are taken as literal text.
func (p *sectionParser) headerValue(col int, raw string) Node {
	line := p.src.LineIndex()
	pos := p.src.PosAt(col)
	p.src.Seek(line, col)
	n, err := p.expr.parseExpression()
	if err == nil {
		err = p.expr.endStatement()
	}
	p.src.Seek(line, 0)
	if err != nil {
		return &String{nodeBase: nodeBase{pos}, Value: raw}
	}
	if v, ok := n.(*Variable); ok && v.Index == nil && !isBuiltinName(v.Name) {
		return &String{nodeBase: nodeBase{pos}, Value: raw}
	}
	return n
}

func (p *sectionParser) parseCallLine(line string) (Node, error) {
	col := strings.Index(line, "!") + 1
	p.src.SetCol(col)
	tok, err := p.expr.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != SYMBOL || p.expr.peek() != LPAR {
		return nil, NewParserErrorf(tok.Pos, "Expected a function call after \"!\"")
	}
	call, err := p.expr.parseFuncCall(tok)
	if err != nil {
		return nil, err
	}
	if err := p.expr.endStatement(); err != nil {
		return nil, err
	}
	p.src.NextLine()
	return call, nil
}

// parseBody reads body lines until a control line whose terminator name is
// in until, a new section, or the end. The terminator line is not consumed;
// the cursor is left right behind its marker.
func (p *sectionParser) parseBody(until map[string]bool) (nodes []Node, term string, err error) {
	for !p.src.AtEnd() {
		line := p.src.Text()
		p.src.SetCol(0)
		kind, col := classifyBodyLine(line)
		switch kind {
		case "section":
			return nodes, kind, nil
		case "elseif", "else", "endif", "endfor":
			if !until[kind] {
				return nil, "", NewParserErrorf(p.src.PosAt(0), "Unexpected %q", strings.TrimSpace(line))
			}
			p.src.SetCol(col)
			return nodes, kind, nil
		case "if":
			p.src.SetCol(col)
			n, err := p.parseIf()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		case "for":
			p.src.SetCol(col)
			n, err := p.parseFor()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		case "call":
			n, err := p.parseCallLine(line)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		default:
			nodes = append(nodes, &ContentLine{nodeBase: nodeBase{p.src.PosAt(0)}, Text: line})
			p.src.NextLine()
		}
	}
	return nodes, "", nil
}

// classifyBodyLine names the control construct a body line starts and the
// column its arguments begin at.
func classifyBodyLine(line string) (string, int) {
	trimmed := strings.TrimRight(line, " \t")
	switch {
	case strings.TrimSpace(line) == sectionStart:
		return "section", 0
	case trimmed == "??":
		return "else", 2
	case strings.HasPrefix(trimmed, "?? "):
		return "elseif", 3
	case trimmed == "?":
		return "endif", 1
	case strings.HasPrefix(trimmed, "? "):
		return "if", 2
	case trimmed == "...":
		return "endfor", 3
	case strings.HasPrefix(trimmed, "... "):
		return "for", 4
	case callLine.MatchString(trimmed):
		return "call", 1
	}
	return "content", 0
}

// condition reads a condition from the cursor to the end of the line and
// moves to the next line.
func (p *sectionParser) condition() (Node, error) {
	cond, err := p.expr.parseCondition()
	if err != nil {
		return nil, err
	}
	if err := p.expr.endStatement(); err != nil {
		return nil, err
	}
	p.src.NextLine()
	return cond, nil
}

// finishLine requires the rest of a terminator line to be empty.
func (p *sectionParser) finishLine() error {
	if err := p.expr.endStatement(); err != nil {
		return err
	}
	p.src.NextLine()
	return nil
}

func (p *sectionParser) parseIf() (Node, error) {
	terms := map[string]bool{"elseif": true, "else": true, "endif": true}
	n := &IfBlock{nodeBase: nodeBase{p.src.PosAt(0)}}

	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	body, term, err := p.parseBody(terms)
	if err != nil {
		return nil, err
	}
	n.Arms = append(n.Arms, IfArm{Cond: cond, Body: body})

	for term == "elseif" {
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		if body, term, err = p.parseBody(terms); err != nil {
			return nil, err
		}
		n.Arms = append(n.Arms, IfArm{Cond: cond, Body: body})
	}
	if term == "else" {
		if err := p.finishLine(); err != nil {
			return nil, err
		}
		if body, term, err = p.parseBody(map[string]bool{"endif": true}); err != nil {
			return nil, err
		}
		if body == nil {
			body = []Node{}
		}
		n.Else = body
	}
	if term != "endif" {
		return nil, NewParserErrorf(n.Pos(), "Expected \"?\" to close the condition")
	}
	if err := p.finishLine(); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *sectionParser) parseFor() (Node, error) {
	pos := p.src.PosAt(0)
	item, err := p.expr.expect(SYMBOL, "in loop")
	if err != nil {
		return nil, err
	}
	if _, err := p.expr.expect(IN, "in loop"); err != nil {
		return nil, err
	}
	list, err := p.expr.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.finishLine(); err != nil {
		return nil, err
	}
	body, term, err := p.parseBody(map[string]bool{"endfor": true})
	if err != nil {
		return nil, err
	}
	if term != "endfor" {
		return nil, NewParserErrorf(pos, "Expected \"...\" to close the loop")
	}
	if err := p.finishLine(); err != nil {
		return nil, err
	}
	return &For{nodeBase: nodeBase{pos}, Item: item.Value, List: list, Body: body}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
