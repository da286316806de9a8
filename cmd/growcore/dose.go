package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"growcore/pkg/domain"
)

func newResolveCmd(st *appState) *cobra.Command {
	var (
		schemeName string
		plantName  string
		week       int
		litres     float64
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve per-fertilizer doses and the EC target for a week",
		Long: `Resolve the dose of every fertilizer in a scheme for one grow week and a
water volume, along with the week's EC target. The week comes from --week or
from a tracked plant's current lifecycle week via --plant:

  growcore resolve --week 5 --litres 2
  growcore resolve --plant Aurora --litres 10 --scheme coco

Weeks past the end of a schedule keep the last dosage; weeks before the start
resolve to week 1. A week that falls into a gap between defined entries doses
zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if (week > 0) == (plantName != "") {
				return fmt.Errorf("pass exactly one of --week or --plant")
			}
			if litres <= 0 {
				return fmt.Errorf("litres must be positive, got %v", litres)
			}
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			if plantName != "" {
				status, err := svc.PlantStatus(ctx, plantName)
				if err != nil {
					return err
				}
				week = status.Week
			}
			target, err := schemeNameOrActive(ctx, svc, schemeName)
			if err != nil {
				return err
			}
			scheme, err := svc.GetScheme(ctx, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scheme %s, week %d, %.1f L\n", scheme.Name, week, litres)
			names := make([]string, 0, len(scheme.Fertilizers))
			for name := range scheme.Fertilizers {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				dose, err := svc.DoseForWeek(ctx, scheme.Name, name, week, litres)
				if errors.Is(err, domain.ErrNoData) {
					fmt.Fprintf(out, "  %-32s no schedule\n", name)
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-32s %s\n", name, formatMl(dose))
			}
			targetEc, err := svc.TargetEc(ctx, scheme.Name, week)
			switch {
			case errors.Is(err, domain.ErrNoData):
				fmt.Fprintln(out, "target EC undefined")
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "target EC %s\n", formatEc(targetEc))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemeName, "scheme", "", "scheme to resolve (default: active scheme)")
	cmd.Flags().StringVar(&plantName, "plant", "", "take the week from this plant's lifecycle")
	cmd.Flags().IntVar(&week, "week", 0, "grow week to resolve")
	cmd.Flags().Float64Var(&litres, "litres", 1, "water volume in litres")
	return cmd
}

func newEcCmd(st *appState) *cobra.Command {
	var (
		schemeName string
		fertilizer string
		factor     float64
		targetArg  float64
		week       int
		litres     float64
	)
	cmd := &cobra.Command{
		Use:   "ec CURRENT",
		Short: "Suggest ml to raise the reservoir EC to the target",
		Long: `Suggest how many ml of product raise the reservoir from its current EC
(µS/cm) to the target. The target comes from --target (µS/cm) or from the
scheme's curve via --week. Without --fertilizer or --factor the suggestion is
computed for both the growth and bloom presets:

  growcore ec 400 --week 5 --litres 5
  growcore ec 400 --target 1200 --litres 5 --fertilizer "GreenHome Bloom"

A current EC at or above the target needs 0 ml. The model is linear and
per-product contributions are independent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ecNow, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("current EC %q is not a number", args[0])
			}
			if (week > 0) == cmd.Flags().Changed("target") {
				return fmt.Errorf("pass exactly one of --target or --week")
			}
			if fertilizer != "" && cmd.Flags().Changed("factor") {
				return fmt.Errorf("pass at most one of --fertilizer or --factor")
			}
			if litres <= 0 {
				return fmt.Errorf("litres must be positive, got %v", litres)
			}
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			target, err := schemeNameOrActive(ctx, svc, schemeName)
			if err != nil {
				return err
			}

			ecTarget := targetArg
			if week > 0 {
				stored, err := svc.TargetEc(ctx, target, week)
				if errors.Is(err, domain.ErrNoData) {
					return fmt.Errorf("scheme %s has no EC curve, pass --target instead", target)
				}
				if err != nil {
					return err
				}
				ecTarget = stored * 1000
			}

			factors, err := suggestionFactors(cmd, svc, target, fertilizer, factor)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "current %.0f µS/cm, target %.0f µS/cm, %.1f L\n", ecNow, ecTarget, litres)
			for _, entry := range factors {
				ml, err := svc.RequiredMl(ctx, ecNow, ecTarget, litres, entry.factor)
				var invalid domain.ErrInvalidEcFactor
				if errors.As(err, &invalid) {
					fmt.Fprintf(out, "  %-12s factor %.0f not usable\n", entry.label, entry.factor)
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-12s factor %.0f: %s\n", entry.label, entry.factor, formatMl(ml))
			}

			if _, _, err := svc.MarkEcHelperUsed(ctx); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemeName, "scheme", "", "scheme for curve and fertilizer lookups (default: active scheme)")
	cmd.Flags().StringVar(&fertilizer, "fertilizer", "", "use this fertilizer's EC factor")
	cmd.Flags().Float64Var(&factor, "factor", 0, "use an explicit EC factor")
	cmd.Flags().Float64Var(&targetArg, "target", 0, "target EC in µS/cm")
	cmd.Flags().IntVar(&week, "week", 0, "take the target from the scheme's curve at this week")
	cmd.Flags().Float64Var(&litres, "litres", 1, "water volume in litres")
	cmd.AddCommand(newEcFactorCmd(st))
	return cmd
}

func newEcFactorCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "factor NAME VALUE",
		Short: "Store a named EC factor preset",
		Long: `Store a named EC factor preset. Presets are global, not tied to a scheme,
and feed the ec helper when neither --fertilizer nor --factor is given:

  growcore ec factor growth 490

The value is the EC contribution in µS/cm added by 1 ml of product per litre.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("factor %q is not a number", args[1])
			}
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			settings, res, err := svc.SetDefaultEcFactor(ctx, args[0], value)
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			names := make([]string, 0, len(settings.DefaultEcFactors))
			for name := range settings.DefaultEcFactors {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "ec factor presets:")
			for _, name := range names {
				fmt.Fprintf(out, "  %-12s %.0f\n", name, settings.DefaultEcFactors[name])
			}
			return nil
		},
	}
}

type factorEntry struct {
	label  string
	factor float64
}

// suggestionFactors picks the EC factors to compute suggestions for: an
// explicit --factor, a named fertilizer's factor, or the default presets.
func suggestionFactors(cmd *cobra.Command, svc serviceReader, schemeName, fertilizer string, factor float64) ([]factorEntry, error) {
	ctx := cmd.Context()
	if cmd.Flags().Changed("factor") {
		return []factorEntry{{label: "custom", factor: factor}}, nil
	}
	if fertilizer != "" {
		scheme, err := svc.GetScheme(ctx, schemeName)
		if err != nil {
			return nil, err
		}
		def, ok := scheme.Fertilizers[fertilizer]
		if !ok {
			return nil, domain.ErrNotFound{Entity: domain.EntityFertilizer, Name: fertilizer}
		}
		return []factorEntry{{label: def.Name, factor: def.EcFactor}}, nil
	}
	settings, err := svc.Settings(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(settings.DefaultEcFactors))
	for name := range settings.DefaultEcFactors {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]factorEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, factorEntry{label: name, factor: settings.DefaultEcFactors[name]})
	}
	return entries, nil
}

// serviceReader is the slice of the service the suggestion helper needs.
type serviceReader interface {
	GetScheme(ctx context.Context, name string) (domain.Scheme, error)
	Settings(ctx context.Context) (domain.Settings, error)
}
