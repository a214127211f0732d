package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smertiens/contemply/pkg/console"
	"github.com/smertiens/contemply/pkg/samples"
)

func newSamplesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Browse the sample templates shipped with contemply",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the sample templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range samples.List() {
				fmt.Fprintf(a.out, "%s\t%s\n", console.Label(s.Name), s.Description)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print a sample template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := samples.Get(args[0])
			if err != nil {
				return err
			}
			src, err := s.Source()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, src)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "copy NAME [DIR]",
		Short: "Copy a sample template into DIR (default: working directory)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("target folder: %w", err)
			}
			path, err := samples.Copy(args[0], dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, console.Success("Sample "+console.Highlight(path)+" has been created"))
			return nil
		},
	})
	return cmd
}
