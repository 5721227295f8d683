package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/thermogrid/app"
	"github.com/kilianp07/thermogrid/config"
	"github.com/kilianp07/thermogrid/pkg/export"
)

var planOut string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a single day and export the schedule",
	RunE:  planDay,
}

func init() {
	planCmd.Flags().StringVarP(&planOut, "out", "o", "plan.json", "output file (.json or .csv)")
	rootCmd.AddCommand(planCmd)
}

func planDay(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
		if _, err := svc.Run(ctx, 1); err != nil {
			return err
		}
		last := svc.World.LastPlan()
		plantIDs := make([]string, len(cfg.Grid.Plants))
		for i, p := range cfg.Grid.Plants {
			plantIDs[i] = p.ID
		}
		blockIDs := make([]string, len(cfg.Grid.Blocks))
		for i, b := range cfg.Grid.Blocks {
			blockIDs[i] = b.ID
		}
		p := export.Plan{
			Day:     last.Day,
			Fitness: last.Result.Fitness,
			Entries: export.Entries(last.Instance, last.Result.Best, plantIDs, blockIDs),
		}
		if err := export.WriteFile(planOut, p); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "day %d plan written to %s (fitness %.4f)\n", p.Day, planOut, p.Fitness)
		return nil
	})
}
