package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"growcore/pkg/domain"
)

func newSchemeCmd(st *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheme",
		Short: "Manage nutrient schemes",
	}
	cmd.AddCommand(
		newSchemeListCmd(st),
		newSchemeShowCmd(st),
		newSchemeCreateCmd(st),
		newSchemeRenameCmd(st),
		newSchemeDeleteCmd(st),
		newSchemeActivateCmd(st),
	)
	return cmd
}

func newSchemeListCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schemes, marking the active one",
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
			out := cmd.OutOrStdout()
			for _, scheme := range schemes {
				marker := " "
				if scheme.Name == settings.ActiveSchemeName {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-24s %d fertilizers, %d curve weeks\n",
					marker, scheme.Name, len(scheme.Fertilizers), len(scheme.EcCurve))
			}
			return nil
		},
	}
}

func newSchemeShowCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a scheme's schedules and EC curve (default: active scheme)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			var scheme domain.Scheme
			if len(args) == 1 {
				scheme, err = svc.GetScheme(ctx, args[0])
			} else {
				scheme, err = svc.ActiveScheme(ctx)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scheme %s\n", scheme.Name)
			names := make([]string, 0, len(scheme.Fertilizers))
			for name := range scheme.Fertilizers {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				def := scheme.Fertilizers[name]
				fmt.Fprintf(out, "  %s (factor %.0f)\n    %s\n",
					name, def.EcFactor, domain.FormatScheduleText(def.Schedule))
			}
			if len(scheme.EcCurve) > 0 {
				fmt.Fprintf(out, "  ec curve\n    %s\n", domain.FormatEcCurveText(scheme.EcCurve))
			} else {
				fmt.Fprintln(out, "  ec curve undefined")
			}
			return nil
		},
	}
}

func newSchemeCreateCmd(st *appState) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a scheme, empty or copied from a template scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			scheme, res, err := svc.CreateScheme(ctx, args[0], from)
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "created scheme %s\n", scheme.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "template scheme to deep copy")
	return cmd
}

func newSchemeRenameCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a scheme, keeping the active pointer intact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			scheme, res, err := svc.RenameScheme(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "renamed scheme %s to %s\n", args[0], scheme.Name)
			return nil
		},
	}
}

func newSchemeDeleteCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a scheme (the last remaining scheme cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.DeleteScheme(ctx, args[0])
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			settings, err := svc.Settings(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted scheme %s (active: %s)\n", args[0], settings.ActiveSchemeName)
			return nil
		},
	}
}

func newSchemeActivateCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "activate NAME",
		Short: "Make a scheme the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			settings, res, err := svc.ActivateScheme(ctx, args[0])
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "active scheme is now %s\n", settings.ActiveSchemeName)
			return nil
		},
	}
}
