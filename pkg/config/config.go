// Package config loads the CLI configuration.
//
// Values are layered, later sources winning: built-in defaults, the config
// file, CONTEMPLY_* environment variables and finally command line flags
// that were set explicitly.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/smertiens/contemply/pkg/contemply"
	"github.com/smertiens/contemply/pkg/prefs"
	v "github.com/smertiens/contemply/pkg/validator"
)

const (
	EnvPrefix = "CONTEMPLY_"
	// UserFileName is looked up in the user directory when no project
	// config exists.
	UserFileName = "config.yaml"
)

// ProjectFileNames are looked up in the working directory.
var ProjectFileNames = []string{"contemply.yaml", "contemply.yml"}

var logLevels = []string{"debug", "info", "warn", "error"}

type Config struct {
	SettingsFile string   `koanf:"settings_file"`
	CacheDir     string   `koanf:"cache_dir"`
	MaxLoopRuns  int      `koanf:"max_loop_runs"`
	StartMarker  string   `koanf:"start_marker"`
	EndMarker    string   `koanf:"end_marker"`
	Console      bool     `koanf:"console"`
	LogLevel     string   `koanf:"log_level"`
	Bundles      []string `koanf:"bundles"`
	NoColor      bool     `koanf:"no_color"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

func (c *Config) Validate() error {
	return v.All(
		v.NotEmpty(c.SettingsFile, "settings_file"),
		v.NotEmpty(c.CacheDir, "cache_dir"),
		v.Positive(c.MaxLoopRuns, "max_loop_runs"),
		v.NotEmpty(c.StartMarker, "start_marker"),
		v.MatchesAllowed(c.LogLevel, logLevels, "log_level"),
		v.NoDuplicates(c.Bundles, "bundles"),
	)
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return l
}

// Defaults returns the built-in values.
func Defaults() (map[string]any, error) {
	settings, err := prefs.DefaultPath()
	if err != nil {
		return nil, err
	}
	dir, err := prefs.UserDir()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"settings_file": settings,
		"cache_dir":     filepath.Join(dir, "cache"),
		"max_loop_runs": contemply.DefaultMaxLoopRuns,
		"start_marker":  contemply.DefaultStartMarker,
		"end_marker":    "",
		"console":       false,
		"log_level":     "warn",
		"bundles":       []string{},
		"no_color":      false,
	}, nil
}

// FindFile returns the config file to load: explicit, a project file in
// the working directory or the user config. Empty means none.
func FindFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ProjectFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if dir, err := prefs.UserDir(); err == nil {
		p := filepath.Join(dir, UserFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load builds the configuration. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := FindFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// CONTEMPLY_MAX_LOOP_RUNS -> max_loop_runs, bundles are comma separated
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if value == "" {
			return "", nil
		}
		if key == "bundles" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "bundle":
				key = "bundles"
			case "verbose":
				if on, _ := flags.GetBool(f.Name); !on {
					return "", nil
				}
				return "log_level", "debug"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
