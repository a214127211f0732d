package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/smertiens/contemply/pkg/config"
	"github.com/smertiens/contemply/pkg/console"
	"github.com/smertiens/contemply/pkg/prefs"
	"github.com/smertiens/contemply/pkg/storage"
)

// app carries what every command needs once flags are parsed.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "contemply",
		Short: "A code generator that creates boilerplate files from templates",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: cfg.Level()}))
			slog.SetDefault(a.logger)
			if cfg.NoColor {
				console.DisableColor()
			}
			if cfg.File != "" {
				a.logger.Debug("Using config file", "path", cfg.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./contemply.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")
	root.PersistentFlags().String("settings-file", "", "Path to the settings file")
	root.PersistentFlags().String("cache-dir", "", "Directory for downloaded templates")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newStorageCmd(a))
	root.AddCommand(newSamplesCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Contemply version %s\n", Version)
			return nil
		},
	}
}

// storageManager opens the preferences the storage registry lives in.
func (a *app) storageManager() (*storage.Manager, error) {
	p, err := prefs.Open(a.cfg.SettingsFile, a.logger)
	if err != nil {
		return nil, err
	}
	return storage.NewManager(p), nil
}
