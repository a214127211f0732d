package testutil

import (
	"errors"
	"fmt"
)

// ErrNoAnswer is returned when a Prompter runs out of scripted answers.
var ErrNoAnswer = errors.New("no scripted answer left")

// Prompter answers prompts from fixed queues and records every question.
type Prompter struct {
	Answers  []string
	Confirms []bool
	Lists    [][]string

	Questions []string
}

func (p *Prompter) Input(question string) (string, error) {
	p.Questions = append(p.Questions, question)
	if len(p.Answers) == 0 {
		return "", ErrNoAnswer
	}
	a := p.Answers[0]
	p.Answers = p.Answers[1:]
	return a, nil
}

func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	p.Questions = append(p.Questions, question)
	if len(p.Confirms) == 0 {
		return def, nil
	}
	c := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return c, nil
}

// Choose pops the next answer, which must be one of options.
func (p *Prompter) Choose(question string, options []string) (string, error) {
	a, err := p.Input(question)
	if err != nil {
		return "", err
	}
	for _, o := range options {
		if o == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("scripted answer %q is not one of %v", a, options)
}

func (p *Prompter) Collect(question string) ([]string, error) {
	p.Questions = append(p.Questions, question)
	if len(p.Lists) == 0 {
		return nil, ErrNoAnswer
	}
	l := p.Lists[0]
	p.Lists = p.Lists[1:]
	return l, nil
}
