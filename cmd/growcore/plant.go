package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"growcore/pkg/domain"
)

func newPlantCmd(st *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plant",
		Short: "Track plants and their lifecycle dates",
	}
	cmd.AddCommand(
		newPlantAddCmd(st),
		newPlantListCmd(st),
		newPlantShowCmd(st),
		newPlantNoteCmd(st),
		newPlantFlowerCmd(st),
		newPlantDeleteCmd(st),
	)
	return cmd
}

func newPlantAddCmd(st *appState) *cobra.Command {
	var genetics, notes string
	cmd := &cobra.Command{
		Use:   "add NAME GERMINATION",
		Short: "Record a new plant (germination date as DD.MM.YYYY)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			germination, err := domain.ParseDate(args[1])
			if err != nil {
				return err
			}
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			plant, res, err := svc.AddPlant(ctx, domain.PlantRecord{
				Name:            args[0],
				GerminationDate: germination,
				Genetics:        genetics,
				Notes:           notes,
			})
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "added plant %s (germinated %s)\n",
				plant.Name, domain.FormatDate(plant.GerminationDate))
			return nil
		},
	}
	cmd.Flags().StringVar(&genetics, "genetics", "", "strain or variety")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newPlantListCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plants with their current week and phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			plants, err := svc.ListPlants(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, plant := range plants {
				status, err := svc.PlantStatus(ctx, plant.Name)
				if err != nil {
					return err
				}
				flowering := "-"
				if plant.FloweringStart != nil {
					flowering = domain.FormatDate(*plant.FloweringStart)
				}
				fmt.Fprintf(out, "%-24s germinated %s  flowering %-10s  week %d %s\n",
					plant.Name, domain.FormatDate(plant.GerminationDate), flowering,
					status.Week, status.Phase)
			}
			return nil
		},
	}
}

func newPlantShowCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one plant's record and derived status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			plant, err := svc.GetPlant(ctx, args[0])
			if err != nil {
				return err
			}
			status, err := svc.PlantStatus(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plant %s\n", plant.Name)
			fmt.Fprintf(out, "  germinated: %s\n", domain.FormatDate(plant.GerminationDate))
			if plant.FloweringStart != nil {
				fmt.Fprintf(out, "  flowering:  %s\n", domain.FormatDate(*plant.FloweringStart))
			}
			if plant.Genetics != "" {
				fmt.Fprintf(out, "  genetics:   %s\n", plant.Genetics)
			}
			if plant.Notes != "" {
				fmt.Fprintf(out, "  notes:      %s\n", plant.Notes)
			}
			fmt.Fprintf(out, "  status:     week %d, %s (since %s)\n",
				status.Week, status.Phase, domain.FormatDate(status.Reference))
			return nil
		},
	}
}

func newPlantNoteCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "note NAME NOTES",
		Short: "Replace a plant's notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			plant, res, err := svc.UpdatePlantNotes(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "updated notes for %s\n", plant.Name)
			return nil
		},
	}
}

func newPlantFlowerCmd(st *appState) *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "flower NAME [DATE]",
		Short: "Set or clear a plant's flowering start date",
		Long: `Set a plant's flowering start date (DD.MM.YYYY). The date switches the
plant's week counting to the flowering reference once it is reached. Clearing
the date with --clear returns the plant to vegetative counting:

  growcore plant flower Aurora 01.05.2024
  growcore plant flower Aurora --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if clear == (len(args) == 2) {
				return fmt.Errorf("pass either a date or --clear")
			}
			var start *time.Time
			if len(args) == 2 {
				parsed, err := domain.ParseDate(args[1])
				if err != nil {
					return err
				}
				start = &parsed
			}
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			plant, res, err := svc.SetFloweringStart(ctx, args[0], start)
			if err != nil {
				return err
			}
			printViolations(cmd.OutOrStdout(), res)
			if plant.FloweringStart != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s flowers since %s\n",
					plant.Name, domain.FormatDate(*plant.FloweringStart))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "cleared flowering start for %s\n", plant.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the flowering start date")
	return cmd
}

func newPlantDeleteCmd(st *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a plant record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := st.openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := svc.DeletePlant(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted plant %s\n", args[0])
			return nil
		},
	}
}
