package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCmd(st *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export and list state snapshots in the archive store",
	}
	cmd.AddCommand(newBackupCreateCmd(st), newBackupListCmd(st))
	return cmd
}

func newBackupCreateCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Write a full state snapshot to the archive under a timestamped key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := svc.CreateBackup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes, %s schemes, %s plants)\n",
				info.Key, info.Size, info.Metadata["schemes"], info.Metadata["plants"])
			return nil
		},
	}
}

func newBackupListCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			infos, err := svc.ListBackups(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, info := range infos {
				fmt.Fprintf(out, "%s  %d bytes  %s\n", info.Key, info.Size, formatWhen(info.LastModified))
			}
			return nil
		},
	}
}
