package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smertiens/contemply/pkg/contemply"
)

// isolate points the user directory and working directory at temp dirs.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("CONTEMPLY_SETTINGS_FILE", "")
	prevDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { _ = os.Chdir(prevDir) })
	return home, work
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("console", false, "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringArray("bundle", nil, "")
	fs.Int("max-loop-runs", 0, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Equal(t, contemply.DefaultMaxLoopRuns, cfg.MaxLoopRuns)
	assert.Equal(t, "$", cfg.StartMarker)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.Console)
	assert.Empty(t, cfg.Bundles)
	assert.Equal(t, home, filepath.Dir(filepath.Dir(cfg.SettingsFile)))
	assert.Equal(t, "cache", filepath.Base(cfg.CacheDir))
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("contemply.yaml", []byte(
		"max_loop_runs: 50\nconsole: true\nlog_level: info\nbundles: [a.star]\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "contemply.yaml", cfg.File)
	assert.Equal(t, 50, cfg.MaxLoopRuns)
	assert.True(t, cfg.Console)
	assert.Equal(t, []string{"a.star"}, cfg.Bundles)

	t.Setenv("CONTEMPLY_MAX_LOOP_RUNS", "70")
	t.Setenv("CONTEMPLY_BUNDLES", "b.star, c.star")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.MaxLoopRuns)
	assert.Equal(t, []string{"b.star", "c.star"}, cfg.Bundles)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--max-loop-runs=90", "--bundle=d.star", "-v"}))
	cfg, err = Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.MaxLoopRuns)
	assert.Equal(t, []string{"d.star"}, cfg.Bundles)
	assert.Equal(t, "debug", cfg.LogLevel)
	// unset flags do not override the file
	assert.True(t, cfg.Console)
}

func TestLoadUserConfig(t *testing.T) {
	home, _ := isolate(t)
	dir := filepath.Join(home, ".contemply")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, UserFileName), []byte("end_marker: '}}'\nstart_marker: '{{'\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "{{", cfg.StartMarker)
	assert.Equal(t, "}}", cfg.EndMarker)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad level", "log_level: loud\n", "log_level"},
		{"zero loops", "max_loop_runs: 0\n", "max_loop_runs"},
		{"no start marker", "start_marker: ''\n", "start_marker"},
		{"duplicate bundles", "bundles: [a, a]\n", "bundles"},
		{"broken yaml", "bundles: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, work := isolate(t)
			path := filepath.Join(work, "custom.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", (&Config{LogLevel: "debug"}).Level().String())
	assert.Equal(t, "WARN", (&Config{LogLevel: "nonsense"}).Level().String())
}
