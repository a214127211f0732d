package contemply

import (
	"unicode"
	"unicode/utf8"
)

// Lexer scans the current line of a Source. It never moves to another line;
// at the end of a line it yields NEWLINE, or EOF on the last line.
type Lexer struct {
	src *Source
}

func NewLexer(src *Source) *Lexer {
	return &Lexer{src: src}
}

// NextToken returns the next token. With peek set the cursor is left where
// it was, payloads are dropped and an unrecognized character yields UNKNOWN
// instead of an error.
func (l *Lexer) NextToken(peek bool) (Token, error) {
	start := l.src.Col()
	tok, err := l.scan(peek)
	if peek {
		l.src.SetCol(start)
		tok.Value = ""
		if err != nil {
			tok.Kind = UNKNOWN
			err = nil
		}
	}
	return tok, err
}

// Peek is shorthand for NextToken(true) returning only the kind.
func (l *Lexer) Peek() Kind {
	tok, _ := l.NextToken(true)
	return tok.Kind
}

func (l *Lexer) next() (rune, int) {
	line := l.src.Text()
	i := l.src.Col()
	if i >= len(line) {
		return 0, 0
	}
	r, size := utf8.DecodeRuneInString(line[i:])
	l.src.SetCol(i + size)
	return r, size
}

func (l *Lexer) peek() rune {
	line := l.src.Text()
	i := l.src.Col()
	if i >= len(line) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(line[i:])
	return r
}

// match consumes s if the input continues with it.
func (l *Lexer) match(s string) bool {
	line := l.src.Text()
	i := l.src.Col()
	if i+len(s) > len(line) || line[i:i+len(s)] != s {
		return false
	}
	l.src.SetCol(i + len(s))
	return true
}

func (l *Lexer) skipBlanks() {
	for {
		r := l.peek()
		if r != ' ' && r != '\t' {
			return
		}
		l.next()
	}
}

func (l *Lexer) endOfLine() Token {
	pos := l.src.Pos()
	if l.src.IsLastLine() {
		return Token{Kind: EOF, Pos: pos}
	}
	return Token{Kind: NEWLINE, Pos: pos}
}

func (l *Lexer) scan(peek bool) (Token, error) {
	l.skipBlanks()
	pos := l.src.Pos()
	line := l.src.Text()
	startCol := l.src.Col()

	if startCol >= len(line) {
		return l.endOfLine(), nil
	}

	simple := func(k Kind, n int) (Token, error) {
		l.src.SetCol(startCol + n)
		return Token{Kind: k, Value: line[startCol : startCol+n], Pos: pos}, nil
	}

	switch {
	case l.match("#::"):
		return Token{Kind: CMD_BLOCK, Value: "#::", Pos: pos}, nil
	case l.match("#:"):
		return Token{Kind: CMD_LINE_START, Value: "#:", Pos: pos}, nil
	case l.peek() == '#':
		// comments run to the end of the line
		l.src.SetCol(len(line))
		return Token{Kind: COMMENT, Value: line[startCol:], Pos: pos}, nil
	case l.match("=="):
		return Token{Kind: COMP_EQ, Value: "==", Pos: pos}, nil
	case l.match("!="):
		return Token{Kind: COMP_NOT_EQ, Value: "!=", Pos: pos}, nil
	case l.match("<="):
		return Token{Kind: COMP_LT_EQ, Value: "<=", Pos: pos}, nil
	case l.match(">="):
		return Token{Kind: COMP_GT_EQ, Value: ">=", Pos: pos}, nil
	case l.match("<<"):
		return Token{Kind: FILE_END, Value: "<<", Pos: pos}, nil
	case l.match(">>"):
		return Token{Kind: FILE_START, Value: ">>", Pos: pos}, nil
	case l.match("+="):
		return Token{Kind: ASSIGN_PLUS, Value: "+=", Pos: pos}, nil
	case l.match("->"):
		return Token{Kind: OUTPUT, Value: "->", Pos: pos}, nil
	}

	r := l.peek()
	switch r {
	case '(':
		return simple(LPAR, 1)
	case ')':
		return simple(RPAR, 1)
	case '[':
		return simple(LSQRBR, 1)
	case ']':
		return simple(RSQRBR, 1)
	case ',':
		return simple(COMMA, 1)
	case '=':
		return simple(ASSIGN, 1)
	case '<':
		return simple(COMP_LT, 1)
	case '>':
		return simple(COMP_GT, 1)
	case '+':
		return simple(ADD, 1)
	case '-':
		return simple(SUB, 1)
	case '*':
		return simple(MULT, 1)
	case '/':
		return simple(DIV, 1)
	case '"', '\'':
		return l.scanString(r, pos)
	}

	if r >= '0' && r <= '9' {
		return l.scanNumber(pos), nil
	}
	if r == '_' || unicode.IsLetter(r) {
		return l.scanSymbol(pos), nil
	}

	if peek {
		return Token{Kind: UNKNOWN, Pos: pos}, nil
	}
	return Token{}, NewSyntaxErrorf(pos, "Unrecognized token %q", r)
}

func (l *Lexer) scanString(quote rune, pos Position) (Token, error) {
	l.next()
	line := l.src.Text()
	start := l.src.Col()
	for {
		r, size := l.next()
		if size == 0 {
			return Token{}, NewSyntaxErrorf(pos, "Unterminated string")
		}
		if r == quote {
			return Token{Kind: STRING, Value: line[start : l.src.Col()-size], Pos: pos}, nil
		}
	}
}

func (l *Lexer) scanNumber(pos Position) Token {
	line := l.src.Text()
	start := l.src.Col()
	i := start
	for i < len(line) && isDigit(line[i]) {
		i++
	}
	kind := INTEGER
	if i+1 < len(line) && line[i] == '.' && isDigit(line[i+1]) {
		kind = FLOAT
		i++
		for i < len(line) && isDigit(line[i]) {
			i++
		}
	}
	l.src.SetCol(i)
	return Token{Kind: kind, Value: line[start:i], Pos: pos}
}

func (l *Lexer) scanSymbol(pos Position) Token {
	line := l.src.Text()
	start := l.src.Col()
	for {
		r := l.peek()
		if r == 0 || !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			break
		}
		l.next()
	}
	word := line[start:l.src.Col()]
	if k, ok := keywords[word]; ok {
		return Token{Kind: k, Value: word, Pos: pos}
	}
	return Token{Kind: SYMBOL, Value: word, Pos: pos}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
