package contemply

import (
	"errors"
	"fmt"
	"strings"
)

// Error is implemented by every positional template error.
type Error interface {
	error
	Kind() string
	Position() Position
	Message() string
}

type baseError struct {
	kind string
	pos  Position
	msg  string
	line string // offending source line, filled in by attachSource
}

func (e *baseError) Kind() string       { return e.kind }
func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Message() string    { return e.msg }

func (e *baseError) setSourceLine(s string) {
	if e.line == "" {
		e.line = s
	}
}

func (e *baseError) Error() string {
	if !e.pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	}
	var b strings.Builder
	b.WriteString(e.kind)
	if e.pos.File != "" {
		fmt.Fprintf(&b, " in %s,", e.pos.File)
	} else {
		b.WriteString(" in")
	}
	fmt.Fprintf(&b, " line %d, col %d: %s", e.pos.Line, e.pos.Column, e.msg)
	if e.line != "" {
		b.WriteByte('\n')
		b.WriteString(e.line)
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", max(e.pos.Column-1, 0)))
		b.WriteByte('^')
	}
	return b.String()
}

// SyntaxError is raised by the lexer.
type SyntaxError struct {
	baseError
}

func NewSyntaxErrorf(pos Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{baseError{kind: "SyntaxError", pos: pos, msg: fmt.Sprintf(format, args...)}}
}

// ParserError covers grammar violations and runtime failures of the
// interpreter. Errors returned by template functions are wrapped as Cause.
type ParserError struct {
	baseError
	Cause error
}

func NewParserErrorf(pos Position, format string, args ...any) *ParserError {
	return &ParserError{baseError: baseError{kind: "ParserError", pos: pos, msg: fmt.Sprintf(format, args...)}}
}

// WrapParserError turns cause into a ParserError at pos. Positional errors
// pass through untouched.
func WrapParserError(pos Position, cause error) error {
	var perr Error
	if errors.As(cause, &perr) {
		return cause
	}
	var exit *ExitError
	if errors.As(cause, &exit) {
		return cause
	}
	return &ParserError{baseError: baseError{kind: "ParserError", pos: pos, msg: cause.Error()}, Cause: cause}
}

func (e *ParserError) Unwrap() error { return e.Cause }

// SecurityError blocks access to paths outside a base directory.
type SecurityError struct {
	baseError
	Path string
}

func NewSecurityError(path string) *SecurityError {
	return &SecurityError{
		baseError: baseError{kind: "SecurityException", msg: "Attempt to access path above the given base directory blocked."},
		Path:      path,
	}
}

// ExitError ends a run early. It is returned by Run when a template calls
// exit() or a function stops the interpreter. No output accompanies it.
type ExitError struct {
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return "template exited"
	}
	return "template exited: " + e.Message
}

// attachSource fills in the offending source line for positional errors.
func attachSource(err error, src *Source) error {
	if err == nil || src == nil {
		return err
	}
	var perr Error
	if !errors.As(err, &perr) {
		return err
	}
	if s, ok := perr.(interface{ setSourceLine(string) }); ok {
		pos := perr.Position()
		if pos.IsValid() && (pos.File == "" || pos.File == src.Filename) {
			s.setSourceLine(src.LineText(pos.Line))
		}
	}
	return err
}
