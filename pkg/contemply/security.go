package contemply

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SecurePath joins path onto base and makes sure the result stays inside
// base, also after following symlinks. Absolute paths are treated as
// relative to base.
func SecurePath(base, path string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}
	full := filepath.Join(absBase, path)
	if !within(absBase, full) {
		return "", NewSecurityError(path)
	}
	target, err := resolveExisting(full)
	if err != nil {
		return "", err
	}
	if target == "" || !within(absBase, target) {
		return "", NewSecurityError(path)
	}
	return full, nil
}

func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveExisting follows symlinks in the longest existing prefix of p and
// appends the missing rest. A dangling symlink yields "".
func resolveExisting(p string) (string, error) {
	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if st, lerr := os.Lstat(cur); lerr == nil && st.Mode()&fs.ModeSymlink != 0 {
			return "", nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
