package console

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPrompter(t *testing.T, input string) (*Prompter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p, err := New(strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, &out
}

func TestInput(t *testing.T) {
	p, out := newPrompter(t, "Bob\r\nAlice")
	got, err := p.Input("Name?")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got)

	got, err = p.Input("Again: ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got)
	assert.Equal(t, "Name? Again: ", out.String())

	_, err = p.Input("More?")
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestClosedInputInterrupts(t *testing.T) {
	cases := []struct {
		name string
		ask  func(p *Prompter) error
	}{
		{"input", func(p *Prompter) error { _, err := p.Input("Name?"); return err }},
		{"confirm", func(p *Prompter) error { _, err := p.Confirm("Sure?", true); return err }},
		{"confirm after garbage", func(p *Prompter) error {
			p.in = &plainReader{r: bufio.NewReader(strings.NewReader("what\n")), out: io.Discard}
			_, err := p.Confirm("Sure?", true)
			return err
		}},
		{"choose", func(p *Prompter) error { _, err := p.Choose("Pick", []string{"a"}); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newPrompter(t, "")
			assert.ErrorIs(t, tc.ask(p), ErrInterrupted)
		})
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		def   bool
		want  bool
	}{
		{"\n", true, true},
		{"\n", false, false},
		{"y\n", false, true},
		{"Yes\n", false, true},
		{"NO\n", true, false},
		{"maybe\nn\n", true, false},
	}
	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			p, _ := newPrompter(t, tc.input)
			got, err := p.Confirm("Continue?", tc.def)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConfirmShowsDefaultAndRejectsGarbage(t *testing.T) {
	p, out := newPrompter(t, "what\n\n")
	_, err := p.Confirm("Continue?", false)
	require.NoError(t, err)
	assert.Equal(t, "Continue? [No]: Invalid answer\nContinue? [No]: ", out.String())
}

func TestChoose(t *testing.T) {
	p, out := newPrompter(t, "7\nabc\n2\n")
	got, err := p.Choose("Pick a language", []string{"Go", "Python"})
	require.NoError(t, err)
	assert.Equal(t, "Python", got)
	assert.Equal(t, "Pick a language\n1. Go\n2. Python\n3. Cancel\n"+
		"Your choice: Invalid choice\nYour choice: Invalid choice\nYour choice: ", out.String())
}

func TestChooseCancel(t *testing.T) {
	p, _ := newPrompter(t, "3\n")
	_, err := p.Choose("Pick", []string{"a", "b"})
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestCollect(t *testing.T) {
	p, _ := newPrompter(t, "one\n two \n\nignored\n")
	got, err := p.Collect("Items?")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)

	p, _ = newPrompter(t, "")
	got, err = p.Collect("Items?")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStyles(t *testing.T) {
	DisableColor()
	assert.Equal(t, "✓ done", Success("done"))
	assert.Equal(t, "failed", Error("failed"))
	assert.Equal(t, "name", Highlight("name"))
}
