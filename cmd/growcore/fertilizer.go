package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"growcore/pkg/domain"
)

func newFertilizerCmd(st *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fertilizer",
		Short: "Manage fertilizer definitions within a scheme",
	}
	cmd.AddCommand(newFertilizerSetCmd(st), newFertilizerDeleteCmd(st))
	return cmd
}

func newFertilizerSetCmd(st *appState) *cobra.Command {
	var (
		schemeName string
		factor     float64
		renameFrom string
	)
	cmd := &cobra.Command{
		Use:   "set NAME SCHEDULE",
		Short: "Create or replace a fertilizer definition",
		Long: `Create or replace a fertilizer definition in a scheme. The schedule uses
week:dosage pairs separated by commas, dosage in ml per litre:

  growcore fertilizer set "Bloom A" "1:1.0, 4:2.0, 8:2.5" --factor 430

Weeks between defined entries fall back to zero and are reported as schedule
gaps; weeks past the last entry keep its dosage. --rename-from replaces an
existing definition under a new name. Without --scheme the active scheme is
edited.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			target, err := schemeNameOrActive(ctx, svc, schemeName)
			if err != nil {
				return err
			}
			scheme, res, err := svc.UpsertFertilizer(ctx, target, renameFrom, args[0], args[1], factor)
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			def := scheme.Fertilizers[args[0]]
			fmt.Fprintf(cmd.OutOrStdout(), "scheme %s: %s (factor %.0f)\n  %s\n",
				scheme.Name, def.Name, def.EcFactor, domain.FormatScheduleText(def.Schedule))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemeName, "scheme", "", "scheme to edit (default: active scheme)")
	cmd.Flags().Float64Var(&factor, "factor", 0, "EC contribution in µS/cm per ml/L (0 disables inverse dosing)")
	cmd.Flags().StringVar(&renameFrom, "rename-from", "", "existing definition to replace under the new name")
	return cmd
}

func newFertilizerDeleteCmd(st *appState) *cobra.Command {
	var schemeName string
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a fertilizer definition from a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			target, err := schemeNameOrActive(ctx, svc, schemeName)
			if err != nil {
				return err
			}
			scheme, res, err := svc.DeleteFertilizer(ctx, target, args[0])
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "scheme %s: deleted %s\n", scheme.Name, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&schemeName, "scheme", "", "scheme to edit (default: active scheme)")
	return cmd
}

func newCurveCmd(st *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Manage a scheme's EC target curve",
	}
	cmd.AddCommand(newCurveSetCmd(st))
	return cmd
}

func newCurveSetCmd(st *appState) *cobra.Command {
	var schemeName string
	cmd := &cobra.Command{
		Use:   "set CURVE",
		Short: "Replace a scheme's EC curve",
		Long: `Replace a scheme's EC target curve. The curve uses week:target pairs
separated by commas, targets in mS/cm:

  growcore curve set "1:0.4, 4:0.8, 12:2.0"

Weeks past the last entry keep its target. Without --scheme the active scheme
is edited.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			target, err := schemeNameOrActive(ctx, svc, schemeName)
			if err != nil {
				return err
			}
			scheme, res, err := svc.SetEcCurve(ctx, target, args[0])
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "scheme %s: ec curve %s\n",
				scheme.Name, domain.FormatEcCurveText(scheme.EcCurve))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemeName, "scheme", "", "scheme to edit (default: active scheme)")
	return cmd
}
