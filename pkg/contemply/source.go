package contemply

import (
	"fmt"
	"strings"
)

// Position locates a token or node in a template. Line and Column are
// 1-based; a zero Line means the position is unknown.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("line %d, col %d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s, line %d, col %d", p.File, p.Line, p.Column)
}

// Source is the cursor shared by the lexer and the parser. The parser moves
// between lines, the lexer moves within the current line.
type Source struct {
	Filename string

	lines []string
	line  int // index into lines
	col   int // byte offset into lines[line]
}

// NewSource splits text into lines. A trailing newline does not produce an
// extra empty line.
func NewSource(filename, text string) *Source {
	if text == "" {
		return &Source{Filename: filename}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return &Source{Filename: filename, lines: lines}
}

func (s *Source) Len() int { return len(s.lines) }

// LineIndex is the 0-based index of the current line.
func (s *Source) LineIndex() int { return s.line }

// Col is the byte offset of the cursor in the current line.
func (s *Source) Col() int { return s.col }

// Text returns the current line, or "" past the end.
func (s *Source) Text() string {
	if s.line < 0 || s.line >= len(s.lines) {
		return ""
	}
	return s.lines[s.line]
}

// LineText returns the 1-based line n, or "".
func (s *Source) LineText(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}

func (s *Source) AtEnd() bool { return s.line >= len(s.lines) }

// IsLastLine reports whether the cursor is on the final line.
func (s *Source) IsLastLine() bool { return s.line >= len(s.lines)-1 }

// Seek moves the cursor to line index and column col.
func (s *Source) Seek(line, col int) {
	s.line = line
	s.col = col
}

// SetCol moves the cursor within the current line.
func (s *Source) SetCol(col int) { s.col = col }

// NextLine advances to the start of the following line.
func (s *Source) NextLine() {
	s.line++
	s.col = 0
}

// Pos returns the Position of the cursor.
func (s *Source) Pos() Position {
	return Position{File: s.Filename, Line: s.line + 1, Column: s.col + 1}
}

// PosAt returns the Position of byte offset col on the current line.
func (s *Source) PosAt(col int) Position {
	return Position{File: s.Filename, Line: s.line + 1, Column: col + 1}
}
