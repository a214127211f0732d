// Package storage keeps named template locations so templates can be run
// as "name::template".
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/smertiens/contemply/pkg/contemply"
	"github.com/smertiens/contemply/pkg/prefs"
	"github.com/smertiens/contemply/pkg/validator"
)

const (
	// PrefsKey holds the locations in the preferences file.
	PrefsKey = "storage_locations"
	// Separator splits a storage name from a template path.
	Separator = "::"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// ErrStorage matches every error of this package with errors.Is.
var ErrStorage = errors.New("storage error")

type InvalidNameError struct{ Name string }

func (e *InvalidNameError) Error() string {
	return "Invalid name for the new storage. Use only alphanumeric characters, . and _"
}

func (e *InvalidNameError) Is(target error) bool { return target == ErrStorage }

type NameExistsError struct{ Name string }

func (e *NameExistsError) Error() string { return "The given storage already exists." }

func (e *NameExistsError) Is(target error) bool { return target == ErrStorage }

type NameNotFoundError struct{ Name string }

func (e *NameNotFoundError) Error() string { return "The given storage was not found." }

func (e *NameNotFoundError) Is(target error) bool { return target == ErrStorage }

// Manager adds, removes and resolves storage locations. Changes are saved
// to the preferences right away.
type Manager struct {
	prefs     *prefs.Preferences
	locations map[string]string
}

func NewManager(p *prefs.Preferences) *Manager {
	return &Manager{prefs: p, locations: p.StringMap(PrefsKey)}
}

// IsValidName reports whether name may be used for a storage.
func IsValidName(name string) bool {
	return validator.All(
		validator.NotEmpty(name, "storage name"),
		validator.MatchesPattern(name, namePattern, "storage name"),
	) == nil
}

// IsReference reports whether s has the form name::template.
func IsReference(s string) bool {
	name, _, ok := strings.Cut(s, Separator)
	return ok && IsValidName(name)
}

// Add registers path under name. Relative paths are made absolute.
func (m *Manager) Add(name, path string) error {
	if !IsValidName(name) {
		return &InvalidNameError{Name: name}
	}
	if _, ok := m.locations[name]; ok {
		return &NameExistsError{Name: name}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	m.locations[name] = abs
	return m.persist()
}

func (m *Manager) Remove(name string) error {
	if _, ok := m.locations[name]; !ok {
		return &NameNotFoundError{Name: name}
	}
	delete(m.locations, name)
	return m.persist()
}

// Resolve turns name::template into a path inside the storage. The
// template path may not leave the storage directory.
func (m *Manager) Resolve(ref string) (string, error) {
	name, template, ok := strings.Cut(ref, Separator)
	if !ok {
		return "", fmt.Errorf("%q is not a storage reference, expected name%stemplate", ref, Separator)
	}
	base, ok := m.locations[name]
	if !ok {
		return "", &NameNotFoundError{Name: name}
	}
	return contemply.SecurePath(base, template)
}

// List returns a copy of all locations.
func (m *Manager) List() map[string]string {
	out := make(map[string]string, len(m.locations))
	for k, v := range m.locations {
		out[k] = v
	}
	return out
}

// Names returns the storage names in order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.locations))
	for k := range m.locations {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) persist() error {
	m.prefs.Set(PrefsKey, m.List())
	return m.prefs.Save()
}
