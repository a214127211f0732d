// Package samples ships example templates inside the binary.
package samples

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/smertiens/contemply/pkg/contemply"
	v "github.com/smertiens/contemply/pkg/validator"
	"gopkg.in/yaml.v3"
)

const indexFile = "samples.yaml"

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

type Sample struct {
	Name        string `yaml:"name"`
	File        string `yaml:"file"`
	Description string `yaml:"description"`
}

func (s Sample) Validate() error {
	return v.All(
		v.NotEmpty(s.Name, "name"),
		v.MatchesPattern(s.Name, namePattern, "name"),
		v.NotEmpty(s.File, "file"),
		v.NotEmpty(s.Description, "description"),
	)
}

// Source returns the template text.
func (s Sample) Source() (string, error) {
	b, err := Files.ReadFile(s.File)
	if err != nil {
		return "", fmt.Errorf("reading sample %q: %w", s.Name, err)
	}
	return string(b), nil
}

//go:embed *.cpy samples.yaml
var Files embed.FS

var index []Sample

// ErrExists is returned by Copy when the target file is already there.
var ErrExists = errors.New("file already exists")

// List returns all samples in index order.
func List() []Sample {
	out := make([]Sample, len(index))
	copy(out, index)
	return out
}

func Get(name string) (Sample, error) {
	for _, s := range index {
		if s.Name == name {
			return s, nil
		}
	}
	return Sample{}, fmt.Errorf("sample %q not found", name)
}

// Copy writes the sample's template file into dir and returns its path.
func Copy(name, dir string) (string, error) {
	s, err := Get(name)
	if err != nil {
		return "", err
	}
	src, err := s.Source()
	if err != nil {
		return "", err
	}
	path, err := contemply.SecurePath(dir, s.File)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s: %w", path, ErrExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return "", fmt.Errorf("writing sample: %w", err)
	}
	return filepath.Clean(path), nil
}

func init() {
	content, err := Files.ReadFile(indexFile)
	if err != nil {
		panic(err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&index); err != nil {
		panic(fmt.Errorf("failed to decode %s: %w", indexFile, err))
	}
	if err := v.Each(index); err != nil {
		panic(fmt.Errorf("invalid %s: %w", indexFile, err))
	}
	names := make([]string, len(index))
	for i, s := range index {
		if _, err := fs.Stat(Files, s.File); err != nil {
			panic(fmt.Errorf("sample %q: %w", s.Name, err))
		}
		names[i] = s.Name
	}
	if err := v.NoDuplicates(names, "sample names"); err != nil {
		panic(err)
	}
}
