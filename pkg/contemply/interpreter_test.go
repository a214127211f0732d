package contemply

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smertiens/contemply/internal/testutil"
)

func runTemplate(t *testing.T, cfg Config, lines ...string) (*Output, error) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	return Render(strings.Join(lines, "\n"), ParseOptions{Filename: "test.cpy"}, cfg)
}

func render(t *testing.T, lines ...string) []string {
	t.Helper()
	out, err := runTemplate(t, Config{}, lines...)
	require.NoError(t, err)
	return out.Map()[DefaultTarget]
}

func runErr(t *testing.T, cfg Config, lines ...string) Error {
	t.Helper()
	_, err := runTemplate(t, cfg, lines...)
	require.Error(t, err)
	var perr Error
	require.ErrorAs(t, err, &perr)
	return perr
}

func TestArithmeticAssignment(t *testing.T) {
	assert.Equal(t, []string{"1196"}, render(t, "#: result = 1283 - 87", "$result"))
}

func TestWhileLoopCounts(t *testing.T) {
	got := render(t,
		"#: num = 0",
		"#: while num <= 5",
		"This run no. $num",
		"#: num = num + 1",
		"#: endwhile",
	)
	assert.Equal(t, []string{
		"This run no. 0", "This run no. 1", "This run no. 2",
		"This run no. 3", "This run no. 4", "This run no. 5",
	}, got)
}

func TestForLoop(t *testing.T) {
	got := render(t,
		`#: for item in ["item 1","item 2","item 2"]`,
		"Found $item",
		"#: endfor",
	)
	assert.Equal(t, []string{"Found item 1", "Found item 2", "Found item 2"}, got)
}

func TestForLoopOverEmptyList(t *testing.T) {
	assert.Empty(t, render(t, "#: for i in []", "never", "#: endfor"))
}

func TestLoopCeiling(t *testing.T) {
	err := runErr(t, Config{MaxLoopRuns: 25}, "#: while True", "x", "#: endwhile")
	assert.Equal(t, "ParserError", err.Kind())
	assert.Equal(t, "Maximum loop iterations of 25 reached.", err.Message())
}

func TestLoopCeilingAllowsExactlyMaxRuns(t *testing.T) {
	out, err := runTemplate(t, Config{MaxLoopRuns: 3},
		"#: n = 0",
		"#: while n < 3",
		"$n",
		"#: n = n + 1",
		"#: endwhile",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, out.Lines(DefaultTarget))
}

func TestBreak(t *testing.T) {
	t.Run("for", func(t *testing.T) {
		got := render(t,
			"#: for i in [1, 2, 3]",
			"#: if i == 2",
			"#: break",
			"#: endif",
			"Item $i",
			"#: endfor",
		)
		assert.Equal(t, []string{"Item 1"}, got)
	})
	t.Run("while", func(t *testing.T) {
		got := render(t,
			"#: n = 0",
			"#: while True",
			"#: n = n + 1",
			"#: if n > 3",
			"#: break",
			"#: endif",
			"#: endwhile",
			"Result $n",
		)
		assert.Equal(t, []string{"Result 4"}, got)
	})
	t.Run("inner loop only", func(t *testing.T) {
		got := render(t,
			`#: for a in ["x", "y"]`,
			"#: for b in [1, 2, 3]",
			"#: if b == 2",
			"#: break",
			"#: endif",
			"$a$b",
			"#: endfor",
			"#: endfor",
		)
		assert.Equal(t, []string{"x1", "y1"}, got)
	})
	t.Run("outside loop", func(t *testing.T) {
		err := runErr(t, Config{}, "#: break")
		assert.Equal(t, "Unexpected BREAK: no surrounding loop found", err.Message())
	})
}

func TestConditionals(t *testing.T) {
	chain := func(x string) []string {
		return render(t,
			"#: x = "+x,
			"#: if x < 5",
			"small",
			"#: elseif x < 10",
			"medium",
			"#: else",
			"large",
			"#: endif",
		)
	}
	assert.Equal(t, []string{"small"}, chain("1"))
	assert.Equal(t, []string{"medium"}, chain("7"))
	assert.Equal(t, []string{"large"}, chain("12.5"))

	assert.Equal(t, []string{"yes"}, render(t, "#: flag = True", "#: if flag", "yes", "#: endif"))
	assert.Empty(t, render(t, `#: flag = "yes"`, "#: if flag", "yes", "#: endif"))
	assert.Equal(t, []string{"ne"}, render(t, `#: if "a" != "b"`, "ne", "#: endif"))
	assert.Equal(t, []string{"eq"}, render(t, "#: if 5 == 5.0", "eq", "#: endif"))
}

func TestCommandBlock(t *testing.T) {
	got := render(t,
		"#::",
		"x = 5",
		"\t#% comment",
		"",
		"y = x * 2",
		"#::",
		"$y",
	)
	assert.Equal(t, []string{"10"}, got)
}

func TestListOperations(t *testing.T) {
	got := render(t,
		"#: l = []",
		`#: l += "a"`,
		`#: l += ["b", "c"]`,
		"$l",
		"$l[1]",
		"#: first = l[0]",
		"$first",
	)
	assert.Equal(t, []string{"['a', 'b', 'c']", "b", "a"}, got)

	err := runErr(t, Config{}, `#: s = "x"`, `#: s += "y"`)
	assert.Equal(t, "Expected variable of type 'list'.", err.Message())

	err = runErr(t, Config{}, `#: s = "x"`, "$s[0]")
	assert.Equal(t, `Variable "s" is not a list.`, err.Message())

	err = runErr(t, Config{}, "#: x = 5", "#: for i in x", "#: endfor")
	assert.Equal(t, `Cannot iterate "x", expected a list.`, err.Message())
}

func TestOperators(t *testing.T) {
	got := render(t,
		"#: a = 10 / 4",
		"#: b = 10 / 5",
		`#: c = "foo" + "bar"`,
		"#: d = 3 * 4",
		"#: e = 1.5 + 1",
		"$a $b $c $d $e",
	)
	assert.Equal(t, []string{"2.5 2.0 foobar 12 2.5"}, got)

	err := runErr(t, Config{}, "#: x = 1 / 0")
	assert.Contains(t, err.Message(), "division by zero")

	err = runErr(t, Config{}, `#: x = "a" - 1`)
	assert.Contains(t, err.Message(), "unsupported operand types")
}

func TestIntegerOverflow(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  string
	}{
		{"add", []string{"#: x = 9223372036854775807 + 1"}, ""},
		{"sub", []string{"#: a = -9223372036854775807", "#: x = a - 2"}, ""},
		{"mul", []string{"#: x = 4611686018427387904 * 2"}, ""},
		{"mul negative", []string{"#: a = -9223372036854775807", "#: x = a * 2"}, ""},
		{"add at max", []string{"#: x = 9223372036854775806 + 1", "$x"}, "9223372036854775807"},
		{"sub at min", []string{"#: a = -9223372036854775807", "#: x = a - 1", "$x"}, "-9223372036854775808"},
		{"mul near max", []string{"#: x = 3037000499 * 3037000499", "$x"}, "9223372030926249001"},
		{"float stays float", []string{"#: x = 9223372036854775807 + 1.0", "$x"}, "9223372036854775808.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.want == "" {
				err := runErr(t, Config{}, tc.lines...)
				assert.Contains(t, err.Message(), "integer overflow")
				return
			}
			assert.Equal(t, []string{tc.want}, render(t, tc.lines...))
		})
	}
}

func TestInterpolation(t *testing.T) {
	got := render(t,
		`#: name = "world"`,
		`#: items = ["a", "b"]`,
		"Hello $name!",
		"Hello $name!upper!",
		"\\$name costs $$",
		"$items!join and $items!length",
		"$name!capitalize",
	)
	assert.Equal(t, []string{
		"Hello world!",
		"Hello WORLD!",
		"$name costs $$",
		"a, b and 2",
		"World",
	}, got)

	err := runErr(t, Config{}, "Hi $nobody")
	assert.Equal(t, "ParserError", err.Kind())
	assert.Equal(t, `Unknown variable: "nobody"`, err.Message())
}

func TestDelimitedMarkers(t *testing.T) {
	out, err := runTemplate(t, Config{StartMarker: "{{", EndMarker: "}}"},
		`#: name = "x"`,
		"a {{ name }} b {{name!upper}}",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a x b X"}, out.Lines(DefaultTarget))
}

func TestInlinePrompts(t *testing.T) {
	p := &testutil.Prompter{Answers: []string{"Alice", "pizza"}}
	out, err := runTemplate(t, Config{Prompter: p},
		"Name: $('Your name?')",
		`Food: $( "Favourite food?" ) for $('Your name?')`,
	)
	require.Error(t, err, "third prompt has no scripted answer")
	assert.Nil(t, out)

	p = &testutil.Prompter{Answers: []string{"Alice", "pizza"}}
	out, err = runTemplate(t, Config{Prompter: p},
		"Name: $('Your name?')",
		`Food: $( "Favourite food?" )`,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name: Alice", "Food: pizza"}, out.Lines(DefaultTarget))
	assert.Equal(t, []string{"Your name?", "Favourite food?"}, p.Questions)
}

func TestFunctions(t *testing.T) {
	var got []string
	first := FuncMap{
		"greet": func(rt Runtime, args []Value) (Value, error) {
			return StringValue("Hello " + args[0].String()), nil
		},
		"record": func(rt Runtime, args []Value) (Value, error) {
			got = append(got, args[0].String())
			return nil, nil
		},
	}
	second := FuncMap{
		"greet": func(rt Runtime, args []Value) (Value, error) {
			return StringValue("shadowed"), nil
		},
		"fail": func(rt Runtime, args []Value) (Value, error) {
			return nil, errors.New("boom")
		},
	}
	cfg := Config{Registry: NewRegistry(first, second)}

	out, err := runTemplate(t, cfg,
		`#: who = "Bob"`,
		`#: msg = greet(who)`,
		"$msg",
		`#: record("for $who")`,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello Bob"}, out.Lines(DefaultTarget))
	assert.Equal(t, []string{"for Bob"}, got)

	perr := runErr(t, cfg, "#: nope()")
	assert.Equal(t, "Unknown function: nope", perr.Message())

	perr = runErr(t, cfg, "#: fail()")
	assert.Equal(t, "boom", perr.Message())
	var pe *ParserError
	require.ErrorAs(t, perr, &pe)
	assert.EqualError(t, pe.Unwrap(), "boom")
}

type yesProvider struct{ FuncMap }

func (yesProvider) Builtins() map[string]Value {
	return map[string]Value{"Yes": BoolValue(true), "No": BoolValue(false)}
}

func TestProviderBuiltins(t *testing.T) {
	cfg := Config{Registry: NewRegistry(yesProvider{FuncMap{}})}
	out, err := runTemplate(t, cfg, "#: if Yes", "$Yes $No", "#: endif")
	require.NoError(t, err)
	assert.Equal(t, []string{"True False"}, out.Lines(DefaultTarget))

	perr := runErr(t, cfg, "#: Yes = 1")
	assert.Contains(t, perr.Message(), "reserved name")
}

func TestInternalFunctions(t *testing.T) {
	var stdout bytes.Buffer
	out, err := runTemplate(t, Config{Stdout: &stdout},
		`#: name = "x"`,
		`#: output("Hello $name")`,
		"#: _debugDumpStack()",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello x"}, out.Lines(DefaultTarget))
	assert.Equal(t, "name = 'x'\n", stdout.String())

	stdout.Reset()
	out, err = runTemplate(t, Config{Stdout: &stdout}, "before", `#: exit("bye")`, "after")
	assert.Nil(t, out)
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, "bye", exit.Message)
	assert.True(t, IsExit(err))
	assert.Equal(t, "bye\n", stdout.String())
}

func TestFileTargets(t *testing.T) {
	out, err := runTemplate(t, Config{},
		"Default line",
		`#: >> "hello.txt"`,
		"Hello",
		`#: >> "/sub/demo.txt", True`,
		"Demo",
		`#: -> "more"`,
		"#: <<",
		"Back",
	)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		DefaultTarget:   {"Default line", "Back"},
		"hello.txt":     {"Hello"},
		"/sub/demo.txt": {"Demo", "more"},
	}, out.Map())

	targets := out.Targets()
	require.Len(t, targets, 3)
	assert.Equal(t, DefaultTarget, targets[0].Name)
	assert.False(t, targets[1].CreateDirs)
	assert.True(t, targets[2].CreateDirs)
}

func TestFileTargetSecurity(t *testing.T) {
	_, err := runTemplate(t, Config{}, `#: >> "../../evil.txt"`, "x")
	var serr *SecurityError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "../../evil.txt", serr.Path)

	perr := runErr(t, Config{}, `#: >> "a.txt", "yes"`)
	assert.Contains(t, perr.Message(), "createFolders must be True or False")
}

func TestSecurePath(t *testing.T) {
	base := t.TempDir()
	p, err := SecurePath(base, "a/b.txt")
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolved, "a", "b.txt"), p)

	p, err = SecurePath(base, "/abs/c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolved, "abs", "c.txt"), p)

	_, err = SecurePath(base, "a/../../x")
	var serr *SecurityError
	assert.ErrorAs(t, err, &serr)
}

func TestSecurePathSymlinks(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "real"), 0o755))
	if err := os.Symlink(outside, filepath.Join(base, "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(base, "real"), filepath.Join(base, "inner")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone"), filepath.Join(base, "dangling")))

	cases := []struct {
		path    string
		allowed bool
	}{
		{"link/evil.txt", false},
		{"link/deeper/evil.txt", false},
		{"link", false},
		{"dangling", false},
		{"inner/ok.txt", true},
		{"real/new/ok.txt", true},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			_, err := SecurePath(base, tc.path)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			var serr *SecurityError
			assert.ErrorAs(t, err, &serr)
		})
	}

	_, err := runTemplate(t, Config{WorkDir: base}, `#: >> "link/evil.txt"`, "hi", "#: <<")
	var serr *SecurityError
	require.ErrorAs(t, err, &serr)
	assert.NoFileExists(t, filepath.Join(outside, "evil.txt"))
}

func TestRunResetsState(t *testing.T) {
	tpl, err := Parse("#: x = 1\n$x", ParseOptions{})
	require.NoError(t, err)
	in := NewInterpreter(Config{Stdout: io.Discard, Vars: map[string]Value{"seed": IntValue(7)}})

	for i := 0; i < 2; i++ {
		out, err := in.Run(tpl)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, out.Lines(DefaultTarget))
	}
	v, ok := in.Get("seed")
	require.True(t, ok)
	assert.Equal(t, IntValue(7), v)
	assert.Len(t, in.Symbols(), 2)
}
