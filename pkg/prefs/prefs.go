// Package prefs persists user preferences in a YAML file below the user's
// contemply directory.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// EnvSettingsFile overrides the location of the settings file.
	EnvSettingsFile = "CONTEMPLY_SETTINGS_FILE"
	// FileName is the settings file inside the user directory.
	FileName = "settings.yaml"
)

// UserDir returns the per-user contemply directory. It is not created.
func UserDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "contemply"), nil
	}
	return filepath.Join(home, ".contemply"), nil
}

// DefaultPath returns the settings file location, honouring
// CONTEMPLY_SETTINGS_FILE.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvSettingsFile); p != "" {
		return p, nil
	}
	dir, err := UserDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Preferences is a flat key/value store backed by a YAML file. It is safe
// for concurrent use.
type Preferences struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]any
}

// Open loads the preferences at path. A missing file yields empty
// preferences; an unreadable one is logged and ignored.
func Open(path string, logger *slog.Logger) (*Preferences, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Preferences{path: path, logger: logger, values: map[string]any{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		logger.Error("Unable to read settings file", "path", path, "error", err)
		return p, nil
	}
	if values != nil {
		p.values = values
	}
	return p, nil
}

// Path returns the file the preferences are saved to.
func (p *Preferences) Path() string { return p.path }

func (p *Preferences) Get(name string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[name]
	return v, ok
}

// GetString returns the value of name if it is a string, else def.
func (p *Preferences) GetString(name, def string) string {
	v, ok := p.Get(name)
	if s, isStr := v.(string); ok && isStr {
		return s
	}
	return def
}

// StringMap returns name as a map of strings. Non-string entries are
// skipped.
func (p *Preferences) StringMap(name string) map[string]string {
	out := map[string]string{}
	v, ok := p.Get(name)
	if !ok {
		return out
	}
	switch m := v.(type) {
	case map[string]string:
		for k, s := range m {
			out[k] = s
		}
	case map[string]any:
		for k, raw := range m {
			if s, ok := raw.(string); ok {
				out[k] = s
			}
		}
	default:
		p.logger.Warn("ignoring malformed setting", "name", name)
	}
	return out
}

func (p *Preferences) Set(name string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = v
}

func (p *Preferences) Delete(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, name)
}

// Keys lists the stored names in order.
func (p *Preferences) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the preferences, creating the directory when needed.
func (p *Preferences) Save() error {
	p.mu.Lock()
	data, err := yaml.Marshal(p.values)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(p.path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		p.logger.Info("User dir does not exist, creating it", "path", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	p.logger.Debug("Settings saved", "path", p.path)
	return nil
}
