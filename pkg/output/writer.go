// Package output delivers the targets of a template run to files or the
// console.
package output

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/smertiens/contemply/pkg/console"
	"github.com/smertiens/contemply/pkg/contemply"
)

// Mode selects where targets go.
type Mode int

const (
	ModeFile Mode = iota
	ModeConsole
)

const (
	filenamePrompt = "Please enter the filename of the new file: "
	noFilename     = "(No filename specified)"
)

// ErrNoFilename is returned when the default target has content but no
// filename and nobody can be asked for one.
var ErrNoFilename = errors.New("no filename given for the default output")

// Writer delivers a contemply.Output.
type Writer struct {
	Mode    Mode
	WorkDir string
	// Prompter asks for missing filenames and confirms overwrites. Without
	// one, existing files are only overwritten when Force is set.
	Prompter contemply.Prompter
	Force    bool
	Out      io.Writer
	Logger   *slog.Logger
}

type fileJob struct {
	display string
	path    string
	lines   []string
	mkdirs  bool
	skip    bool
}

// Write delivers every target of out. In file mode all paths are resolved
// and checked before the first file is touched.
func (w *Writer) Write(out *contemply.Output) error {
	if w.Out == nil {
		w.Out = os.Stdout
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	if w.Mode == ModeConsole {
		w.printAll(out)
		return nil
	}

	var jobs []fileJob
	for _, t := range out.Targets() {
		if t.Name == contemply.NullTarget || t.Name == contemply.ConsoleTarget {
			continue
		}
		if t.Name == contemply.DefaultTarget && len(t.Lines) == 0 {
			continue
		}
		name := t.Name
		if name == contemply.DefaultTarget {
			var err error
			if name, err = w.defaultFilename(out); err != nil {
				return err
			}
		}
		path, err := contemply.SecurePath(w.WorkDir, name)
		if err != nil {
			return err
		}
		jobs = append(jobs, fileJob{display: name, path: path, lines: t.Lines, mkdirs: t.CreateDirs})
	}

	for _, j := range jobs {
		dir := filepath.Dir(j.path)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) && !j.mkdirs {
			return fmt.Errorf("folder for %s does not exist, set createFolders to True to create it", j.display)
		}
	}
	// every question is answered before the first file is written
	for i := range jobs {
		skip, err := w.keepExisting(jobs[i])
		if err != nil {
			return err
		}
		jobs[i].skip = skip
	}

	for _, t := range out.Targets() {
		if t.Name == contemply.ConsoleTarget {
			for _, line := range t.Lines {
				_, _ = fmt.Fprintln(w.Out, line)
			}
		}
	}
	for _, j := range jobs {
		if err := w.writeFile(j); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) defaultFilename(out *contemply.Output) (string, error) {
	if out.Filename != "" {
		return out.Filename, nil
	}
	if w.Prompter == nil {
		return "", ErrNoFilename
	}
	for {
		name, err := w.Prompter.Input(filenamePrompt)
		if err != nil {
			return "", err
		}
		if name = strings.TrimSpace(name); name != "" {
			return name, nil
		}
	}
}

// keepExisting reports whether an existing file at j.path stays untouched.
func (w *Writer) keepExisting(j fileJob) (bool, error) {
	if _, err := os.Stat(j.path); err != nil {
		return false, nil
	}
	overwrite := w.Force
	if !overwrite && w.Prompter != nil {
		var err error
		overwrite, err = w.Prompter.Confirm(fmt.Sprintf("A file with the name %s already exists. Overwrite?", j.display), true)
		if err != nil {
			return false, err
		}
	}
	return !overwrite, nil
}

func (w *Writer) writeFile(j fileJob) error {
	if j.skip {
		w.Logger.Info("keeping existing file", "path", j.path)
		return nil
	}
	if j.mkdirs {
		if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
			return fmt.Errorf("creating folders for %s: %w", j.display, err)
		}
	}
	if err := os.WriteFile(j.path, []byte(strings.Join(j.lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", j.display, err)
	}
	w.Logger.Debug("wrote file", "path", j.path, "lines", len(j.lines))
	_, _ = fmt.Fprintln(w.Out, console.Success("File "+console.Highlight(j.display)+" has been created"))
	return nil
}

// printAll shows every target under a label instead of writing files.
func (w *Writer) printAll(out *contemply.Output) {
	for _, t := range out.Targets() {
		if t.Name == contemply.NullTarget {
			continue
		}
		if t.Name == contemply.DefaultTarget && len(t.Lines) == 0 {
			continue
		}
		label := t.Name
		if t.Name == contemply.DefaultTarget {
			label = out.Filename
			if label == "" {
				label = noFilename
			}
		}
		_, _ = fmt.Fprintln(w.Out, console.Label(label+":"))
		for _, line := range t.Lines {
			_, _ = fmt.Fprintln(w.Out, "\t"+line)
		}
	}
}
