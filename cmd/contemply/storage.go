package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smertiens/contemply/pkg/console"
)

func newStorageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Manage named template locations used as name::template",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME PATH",
		Short: "Register a directory as storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.storageManager()
			if err != nil {
				return err
			}
			if err := m.Add(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, console.Success("Storage "+console.Highlight(args[0])+" has been added"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Forget a storage",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.storageManager()
			if err != nil {
				return err
			}
			if err := m.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, console.Success("Storage "+console.Highlight(args[0])+" has been removed"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all storages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.storageManager()
			if err != nil {
				return err
			}
			names := m.Names()
			if len(names) == 0 {
				fmt.Fprintln(a.out, console.Muted("No storages defined"))
				return nil
			}
			locations := m.List()
			for _, name := range names {
				fmt.Fprintf(a.out, "%s\t%s\n", console.Label(name), locations[name])
			}
			return nil
		},
	})
	return cmd
}
