package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show repository state and load diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			settings, err := svc.Settings(ctx)
			if err != nil {
				return err
			}
			schemes, err := svc.ListSchemes(ctx)
			if err != nil {
				return err
			}
			plants, err := svc.ListPlants(ctx)
			if err != nil {
				return err
			}
			status, err := svc.EcHelperLastUsed(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "storage:             %s\n", st.cfg.Storage.Driver)
			fmt.Fprintf(out, "active scheme:       %s (%d total)\n", settings.ActiveSchemeName, len(schemes))
			fmt.Fprintf(out, "plants:              %d\n", len(plants))
			fmt.Fprintf(out, "ec helper last used: %s\n", formatWhen(status.LastUsed))
			if diags := svc.Diagnostics(); len(diags) > 0 {
				fmt.Fprintf(out, "load diagnostics (%d):\n", len(diags))
				for _, diag := range diags {
					fmt.Fprintf(out, "  - %s\n", diag)
				}
			}
			return nil
		},
	}
}
