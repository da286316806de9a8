package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"growcore/internal/infra/persistence/file"
)

func newInitCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Bootstrap the data directory with the starter scheme",
		Long: `Write a starter data directory for the file driver: the built-in substrate
scheme with its week 1-20 schedules and EC curve, an empty plant table, and a
zero EC helper status. Refuses to overwrite an existing scheme configuration.

For the memory, sqlite, and postgres drivers the starter scheme is seeded on
first open instead; init simply opens and closes the store once.

Examples:
  growcore init
  growcore init --data-dir ~/grow
  growcore --storage sqlite init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if st.cfg.Storage.Driver == "file" {
				dir := st.cfg.Storage.DataDir
				if err := file.Bootstrap(dir); err != nil {
					return fmt.Errorf("bootstrap data dir: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "initialized data directory %s\n", dir)
				return nil
			}
			_, cleanup, err := st.openService(cmd.Context(), false)
			if err != nil {
				return err
			}
			cleanup()
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s store\n", st.cfg.Storage.Driver)
			return nil
		},
	}
}
