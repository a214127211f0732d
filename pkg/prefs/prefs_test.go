package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smertiens/contemply/internal/testutil"
)

func TestDefaultPathHonoursEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvSettingsFile, want)
	got, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Setenv(EnvSettingsFile, "")
	got, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, FileName, filepath.Base(got))
}

func TestOpenMissingFile(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "none.yaml"), testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Empty(t, p.Keys())
	_, ok := p.Get("anything")
	assert.False(t, ok)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	p, err := Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)

	p.Set("theme", "dark")
	p.Set("storage_locations", map[string]string{"home": "/tmp/templates"})
	p.Set("gone", true)
	p.Delete("gone")
	require.NoError(t, p.Save())

	q, err := Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"storage_locations", "theme"}, q.Keys())
	assert.Equal(t, "dark", q.GetString("theme", ""))
	assert.Equal(t, "fallback", q.GetString("missing", "fallback"))
	assert.Equal(t, map[string]string{"home": "/tmp/templates"}, q.StringMap("storage_locations"))
}

func TestCorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("key: [unclosed"), 0o644))

	p, err := Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Empty(t, p.Keys())
}

func TestStringMapSkipsMalformed(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "s.yaml"), testutil.NewTestLogger(t))
	require.NoError(t, err)

	p.Set("plain", "text")
	assert.Empty(t, p.StringMap("plain"))
	assert.Empty(t, p.StringMap("missing"))
}
