package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smertiens/contemply/internal/testutil"
)

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change")
		return ""
	}
}

func TestRunReactsToChanges(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "hello.cpy")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(tpl, []byte("v1"), 0o644))

	calls := make(chan string, 100)
	w := &Watcher{
		Paths:    []string{tpl},
		Debounce: 20 * time.Millisecond,
		Logger:   testutil.NewTestLogger(t),
		OnChange: func(_ context.Context, changed string) error {
			calls <- changed
			return errors.New("render errors do not stop watching")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Equal(t, "", next(t, calls))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(tpl, []byte("v2"), 0o644))
	abs, err := filepath.Abs(tpl)
	require.NoError(t, err)
	assert.Equal(t, abs, next(t, calls))

	require.NoError(t, os.WriteFile(tpl, []byte("v3"), 0o644))
	assert.Equal(t, abs, next(t, calls))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunMissingDirectory(t *testing.T) {
	w := &Watcher{
		Paths:    []string{filepath.Join(t.TempDir(), "nope", "a.cpy")},
		OnChange: func(context.Context, string) error { return nil },
	}
	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "failed to watch")
}
