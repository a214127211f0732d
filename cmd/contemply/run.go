package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smertiens/contemply/pkg/console"
	"github.com/smertiens/contemply/pkg/contemply"
	"github.com/smertiens/contemply/pkg/functions"
	"github.com/smertiens/contemply/pkg/netcache"
	"github.com/smertiens/contemply/pkg/output"
	"github.com/smertiens/contemply/pkg/starlark"
	"github.com/smertiens/contemply/pkg/storage"
	"github.com/smertiens/contemply/pkg/watch"
)

type runOptions struct {
	outputDir string
	force     bool
}

// addRenderFlags registers the flags shared by run and watch. Flags that
// mirror config keys are picked up by config.Load.
func addRenderFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolP("console", "c", false, "Print the output instead of writing files")
	cmd.Flags().StringArrayP("bundle", "b", nil, "Load an extension bundle (.star file or bundle directory), may be repeated")
	cmd.Flags().Int("max-loop-runs", 0, "Maximum iterations of a while loop")
	cmd.Flags().String("start-marker", "", "Start marker for variables in content lines")
	cmd.Flags().String("end-marker", "", "End marker for variables in content lines")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory output files are written to (default: working directory)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite existing files without asking")
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run TEMPLATE",
		Short: "Run a template file, a storage reference (name::template) or a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.Context(), args[0], opts)
		},
	}
	addRenderFlags(cmd, &opts)
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "watch TEMPLATE",
		Short: "Run a template again whenever it or one of its bundles changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if netcache.IsURL(ref) {
				return fmt.Errorf("remote templates cannot be watched")
			}
			path, err := a.templatePath(ref)
			if err != nil {
				return err
			}
			paths := []string{path}
			for _, b := range a.cfg.Bundles {
				if st, err := os.Stat(b); err == nil && st.IsDir() {
					paths = append(paths, filepath.Join(b, starlark.ManifestFile))
					continue
				}
				paths = append(paths, b)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			// every run replaces the previous output
			opts.force = true
			w := &watch.Watcher{
				Paths:  paths,
				Logger: a.logger,
				OnChange: func(ctx context.Context, _ string) error {
					return a.render(ctx, path, opts)
				},
			}
			fmt.Fprintln(a.out, console.Muted("Watching "+path+", press Ctrl+C to stop"))
			return w.Run(ctx)
		},
	}
	addRenderFlags(cmd, &opts)
	return cmd
}

// templatePath resolves a local template or storage reference.
func (a *app) templatePath(ref string) (string, error) {
	if !storage.IsReference(ref) {
		return ref, nil
	}
	m, err := a.storageManager()
	if err != nil {
		return "", err
	}
	return m.Resolve(ref)
}

// loadTemplate returns the template text and the name used in messages.
func (a *app) loadTemplate(ctx context.Context, ref string) (string, string, error) {
	if netcache.IsURL(ref) {
		tpl, err := netcache.New(a.cfg.CacheDir, a.logger).Get(ctx, ref)
		if err != nil {
			return "", "", err
		}
		src, err := tpl.Source()
		return src, tpl.Filename, err
	}
	path, err := a.templatePath(ref)
	if err != nil {
		return "", "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("I could not find the template %s", ref)
		}
		return "", "", fmt.Errorf("reading template: %w", err)
	}
	return string(b), filepath.Base(path), nil
}

func (a *app) registry() (*contemply.Registry, error) {
	reg := contemply.NewRegistry(functions.Builtins())
	for _, path := range a.cfg.Bundles {
		b, err := starlark.Load(path, a.logger)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("Loaded bundle", "name", b.Name, "functions", b.Functions())
		starlark.Register(reg, b)
	}
	return reg, nil
}

func (a *app) render(ctx context.Context, ref string, opts runOptions) error {
	src, name, err := a.loadTemplate(ctx, ref)
	if err != nil {
		return err
	}
	reg, err := a.registry()
	if err != nil {
		return err
	}

	workDir := opts.outputDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return err
		}
	}
	if workDir, err = filepath.Abs(workDir); err != nil {
		return err
	}

	prompter, err := console.New(a.in, a.out)
	if err != nil {
		return err
	}
	defer prompter.Close()

	out, err := contemply.Render(src, contemply.ParseOptions{
		Filename:    name,
		StartMarker: a.cfg.StartMarker,
		EndMarker:   a.cfg.EndMarker,
	}, contemply.Config{
		Registry:    reg,
		Prompter:    prompter,
		Stdout:      a.out,
		Logger:      a.logger,
		WorkDir:     workDir,
		MaxLoopRuns: a.cfg.MaxLoopRuns,
	})
	if contemply.IsExit(err) {
		a.logger.Debug("Template exited", "error", err)
		return nil
	}
	if err != nil {
		return err
	}

	mode := output.ModeFile
	if a.cfg.Console {
		mode = output.ModeConsole
	}
	w := &output.Writer{
		Mode:     mode,
		WorkDir:  workDir,
		Prompter: prompter,
		Force:    opts.force,
		Out:      a.out,
		Logger:   a.logger,
	}
	return w.Write(out)
}
