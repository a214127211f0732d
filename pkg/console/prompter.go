// Package console asks the user questions on a terminal and styles the
// messages printed around a run.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the user cancels a prompt with Ctrl-C or
// picks Cancel in a choice. Input, Confirm and Choose also return it, wrapped
// together with io.EOF, when the input is closed.
var ErrInterrupted = errors.New("interrupted")

const (
	choicePrompt  = "Your choice: "
	collectPrompt = "> "
)

type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// Prompter implements the template engine's prompt capability on a
// terminal. On a TTY it uses readline for line editing, otherwise it reads
// plain lines, which is what tests and pipes get.
type Prompter struct {
	in  lineReader
	out io.Writer
}

// New returns a Prompter reading from in and writing questions to out.
func New(in io.Reader, out io.Writer) (*Prompter, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewEx(&readline.Config{
			Stdin:                  f,
			Stdout:                 out,
			InterruptPrompt:        "^C",
			DisableAutoSaveHistory: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize prompt: %w", err)
		}
		return &Prompter{in: &readlineReader{rl: rl}, out: out}, nil
	}
	return &Prompter{in: &plainReader{r: bufio.NewReader(in), out: out}, out: out}, nil
}

// Close releases the terminal.
func (p *Prompter) Close() error {
	return p.in.Close()
}

func (p *Prompter) Input(question string) (string, error) {
	line, err := p.in.ReadLine(withSpace(question))
	return line, closed(err)
}

// Confirm asks a yes/no question. An empty answer picks def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	label := "No"
	if def {
		label = "Yes"
	}
	for {
		answer, err := p.in.ReadLine(fmt.Sprintf("%s [%s]: ", question, label))
		if err != nil {
			return false, closed(err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		_, _ = fmt.Fprintln(p.out, "Invalid answer")
	}
}

// Choose lists options with numbers and an extra Cancel entry.
func (p *Prompter) Choose(question string, options []string) (string, error) {
	_, _ = fmt.Fprintln(p.out, question)
	for i, o := range options {
		_, _ = fmt.Fprintf(p.out, "%d. %s\n", i+1, o)
	}
	_, _ = fmt.Fprintf(p.out, "%d. %s\n", len(options)+1, "Cancel")

	for {
		answer, err := p.in.ReadLine(choicePrompt)
		if err != nil {
			return "", closed(err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		switch {
		case err != nil:
		case n >= 1 && n <= len(options):
			return options[n-1], nil
		case n == len(options)+1:
			return "", ErrInterrupted
		}
		_, _ = fmt.Fprintln(p.out, "Invalid choice")
	}
}

// Collect reads one item per line until an empty line.
func (p *Prompter) Collect(question string) ([]string, error) {
	_, _ = fmt.Fprintln(p.out, question)
	items := []string{}
	for {
		line, err := p.in.ReadLine(collectPrompt)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return items, nil
		}
		items = append(items, line)
	}
}

// closed turns end of input into ErrInterrupted. Collect is the exception,
// there EOF ends the list.
func closed(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return err
}

func withSpace(q string) string {
	if q == "" || strings.HasSuffix(q, " ") {
		return q
	}
	return q + " "
}

type readlineReader struct {
	rl *readline.Instance
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupted
	}
	return line, err
}

func (r *readlineReader) Close() error { return r.rl.Close() }

type plainReader struct {
	r   *bufio.Reader
	out io.Writer
}

func (r *plainReader) ReadLine(prompt string) (string, error) {
	_, _ = io.WriteString(r.out, prompt)
	line, err := r.r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *plainReader) Close() error { return nil }
