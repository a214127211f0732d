package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smertiens/contemply/internal/testutil"
	"github.com/smertiens/contemply/pkg/console"
	"github.com/smertiens/contemply/pkg/contemply"
)

func render(t *testing.T, dir string, lines ...string) *contemply.Output {
	t.Helper()
	out, err := contemply.Render(strings.Join(lines, "\n"), contemply.ParseOptions{}, contemply.Config{
		WorkDir: dir,
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return out
}

func newWriter(t *testing.T, dir string, p contemply.Prompter) (*Writer, *bytes.Buffer) {
	t.Helper()
	console.DisableColor()
	var buf bytes.Buffer
	w := &Writer{WorkDir: dir, Out: &buf, Logger: testutil.NewTestLogger(t)}
	if p != nil {
		w.Prompter = p
	}
	return w, &buf
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	out := render(t, dir,
		`#: >> "hello.txt"`,
		"Hello",
		"World",
		"#: <<",
		`#: >> "sub/dir/demo.txt", True`,
		"Demo",
		"#: <<",
		`#: >> "@null"`,
		"discarded",
		"#: <<",
		`#: >> "@console"`,
		"shown",
		"#: <<",
	)
	w, buf := newWriter(t, dir, nil)
	require.NoError(t, w.Write(out))

	assert.Equal(t, "Hello\nWorld", readFile(t, filepath.Join(dir, "hello.txt")))
	assert.Equal(t, "Demo", readFile(t, filepath.Join(dir, "sub", "dir", "demo.txt")))
	assert.NoFileExists(t, filepath.Join(dir, "@null"))
	assert.Equal(t, "shown\n✓ File hello.txt has been created\n✓ File sub/dir/demo.txt has been created\n", buf.String())
}

func TestDefaultTargetFilename(t *testing.T) {
	dir := t.TempDir()
	out := render(t, dir, "content")

	w, _ := newWriter(t, dir, nil)
	assert.ErrorIs(t, w.Write(out), ErrNoFilename)

	p := &testutil.Prompter{Answers: []string{"  ", "named.txt"}}
	w, _ = newWriter(t, dir, p)
	require.NoError(t, w.Write(out))
	assert.Equal(t, "content", readFile(t, filepath.Join(dir, "named.txt")))
	assert.Equal(t, []string{filenamePrompt, filenamePrompt}, p.Questions)

	out.Filename = "explicit.txt"
	w, _ = newWriter(t, dir, nil)
	require.NoError(t, w.Write(out))
	assert.FileExists(t, filepath.Join(dir, "explicit.txt"))
}

func TestEmptyDefaultTargetIsSkipped(t *testing.T) {
	dir := t.TempDir()
	out := render(t, dir, `#: >> "only.txt"`, "x", "#: <<")
	w, _ := newWriter(t, dir, nil)
	require.NoError(t, w.Write(out))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "only.txt", entries[0].Name())
}

func TestOverwriteConfirmation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	out := render(t, dir, `#: >> "a.txt"`, "new", "#: <<")

	p := &testutil.Prompter{Confirms: []bool{false}}
	w, _ := newWriter(t, dir, p)
	require.NoError(t, w.Write(out))
	assert.Equal(t, "old", readFile(t, path))
	assert.Equal(t, []string{"A file with the name a.txt already exists. Overwrite?"}, p.Questions)

	p = &testutil.Prompter{Confirms: []bool{true}}
	w, _ = newWriter(t, dir, p)
	require.NoError(t, w.Write(out))
	assert.Equal(t, "new", readFile(t, path))
}

func TestExistingFileWithoutPrompter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	out := render(t, dir, `#: >> "a.txt"`, "new", "#: <<")

	w, _ := newWriter(t, dir, nil)
	require.NoError(t, w.Write(out))
	assert.Equal(t, "old", readFile(t, path))

	w.Force = true
	require.NoError(t, w.Write(out))
	assert.Equal(t, "new", readFile(t, path))
}

func TestNoPartialWrites(t *testing.T) {
	dir := t.TempDir()
	out := contemply.NewOutput()
	out.Target("first.txt").Lines = []string{"one"}
	out.Target("missing/second.txt").Lines = []string{"two"}

	w, _ := newWriter(t, dir, nil)
	err := w.Write(out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "createFolders")
	assert.NoFileExists(t, filepath.Join(dir, "first.txt"))

	out = contemply.NewOutput()
	out.Target("first.txt").Lines = []string{"one"}
	out.Target("../escape.txt").Lines = []string{"two"}
	var serr *contemply.SecurityError
	require.ErrorAs(t, w.Write(out), &serr)
	assert.NoFileExists(t, filepath.Join(dir, "first.txt"))
}

func TestConsoleMode(t *testing.T) {
	dir := t.TempDir()
	out := render(t, dir,
		"top",
		`#: >> "a.txt"`,
		"inside",
		"#: <<",
		`#: >> "@null"`,
		"hidden",
		"#: <<",
	)
	w, buf := newWriter(t, dir, nil)
	w.Mode = ModeConsole
	require.NoError(t, w.Write(out))

	assert.Equal(t, "(No filename specified):\n\ttop\na.txt:\n\tinside\n", buf.String())
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
}

// stopAfter confirms the first n questions and then interrupts.
type stopAfter struct {
	testutil.Prompter
	n int
}

func (p *stopAfter) Confirm(question string, def bool) (bool, error) {
	p.Questions = append(p.Questions, question)
	if p.n == 0 {
		return false, console.ErrInterrupted
	}
	p.n--
	return true, nil
}

func TestInterruptedConfirmationWritesNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("old b"), 0o644))
	out := render(t, dir, `#: >> "a.txt"`, "A", "#: <<", `#: >> "b.txt"`, "B", "#: <<")

	w, buf := newWriter(t, dir, &stopAfter{})
	assert.ErrorIs(t, w.Write(out), console.ErrInterrupted)
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
	assert.Equal(t, "old b", readFile(t, filepath.Join(dir, "b.txt")))
	assert.Empty(t, buf.String())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old a"), 0o644))
	p := &stopAfter{n: 1}
	w, _ = newWriter(t, dir, p)
	assert.ErrorIs(t, w.Write(out), console.ErrInterrupted)
	assert.Len(t, p.Questions, 2)
	assert.Equal(t, "old a", readFile(t, filepath.Join(dir, "a.txt")))
	assert.Equal(t, "old b", readFile(t, filepath.Join(dir, "b.txt")))
}

func TestSymlinkedFolderIsBlocked(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	out := contemply.NewOutput()
	out.Target("ok.txt").Lines = []string{"fine"}
	out.Target("link/evil.txt").Lines = []string{"hi"}

	w, _ := newWriter(t, dir, nil)
	w.Force = true
	var serr *contemply.SecurityError
	require.ErrorAs(t, w.Write(out), &serr)
	assert.NoFileExists(t, filepath.Join(outside, "evil.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "ok.txt"))
}
