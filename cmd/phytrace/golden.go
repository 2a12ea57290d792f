package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/san-kum/phytrace/internal/config"
	"github.com/san-kum/phytrace/internal/golden"
)

// openStore resolves the golden store from the --golden-backend and
// --golden-dir flags, falling back to cfg for flags left unset.
func openStore(cmd *cobra.Command, cfg config.GoldenConfig) (golden.Store, string, func() error, error) {
	backend, dir := goldenBackend, goldenDir
	if cfg.Backend != "" && !cmd.Flags().Changed("golden-backend") {
		backend = cfg.Backend
	}
	if cfg.Dir != "" && !cmd.Flags().Changed("golden-dir") {
		dir = cfg.Dir
	}
	store, closeStore, err := golden.Open(backend, dir, newLogger())
	if err != nil {
		return nil, "", nil, err
	}
	return store, dir, closeStore, nil
}

func withStore(cmd *cobra.Command, fn func(store golden.Store, dir string) error) (err error) {
	store, dir, closeStore, err := openStore(cmd, config.GoldenConfig{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()
	return fn(store, dir)
}

func goldenCommand() *cobra.Command {
	goldenCmd := &cobra.Command{
		Use:   "golden",
		Short: "manage golden snapshots",
	}

	updateCmd := &cobra.Command{
		Use:   "update [name] [dir]",
		Short: "store an evidence pack as the golden snapshot for name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, dir := args[0], args[1]
			snap, err := golden.FromPack(name, dir)
			if err != nil {
				return err
			}
			return withStore(cmd, func(store golden.Store, where string) error {
				if err := store.Save(cmd.Context(), name, snap); err != nil {
					return err
				}
				fmt.Println(okStyle.Render(fmt.Sprintf("stored golden %s (%d points) in %s", name, len(snap.T), where)))
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list golden snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store golden.Store, dir string) error {
				names, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Printf("no golden snapshots in %s\n", dir)
					return nil
				}
				for _, name := range names {
					snap, err := store.Load(cmd.Context(), name)
					if err != nil {
						fmt.Printf("  %-24s %s\n", name, warnStyle.Render(err.Error()))
						continue
					}
					fmt.Printf("  %-24s %s\n", name, labelStyle.Render(fmt.Sprintf("%d points, t_final=%.6g", len(snap.T), snap.FinalTime)))
				}
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "delete a golden snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store golden.Store, _ string) error {
				return store.Delete(cmd.Context(), args[0])
			})
		},
	}

	goldenCmd.AddCommand(updateCmd, listCmd, deleteCmd)
	return goldenCmd
}
