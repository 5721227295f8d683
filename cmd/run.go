package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/thermogrid/app"
	"github.com/kilianp07/thermogrid/config"
	"github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/pkg/export"
)

var (
	runDays  int
	runChart string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the fleet day by day",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().IntVar(&runDays, "days", 0, "days to simulate (defaults to world.days)")
	runCmd.Flags().StringVar(&runChart, "chart", "", "write an HTML chart of the daily energy balance")
	rootCmd.AddCommand(runCmd)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, _ *config.Config, svc *app.Service) error {
		reports, err := svc.Run(ctx, runDays)
		out := cmd.OutOrStdout()
		for _, r := range reports {
			fmt.Fprintf(out, "day %3d  fitness %.4f  served %4d  unserved %4d  deficit %9.2f  offered %9.2f  failures %d\n",
				r.Day, r.Fitness, r.Served, r.Unserved, r.Deficit, r.Offered, r.Failures)
		}
		if err != nil {
			return err
		}
		if runChart != "" {
			if err := writeChart(runChart, reports); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "run %s\n", svc.World.RunID())
		return nil
	})
}

func writeChart(path string, reports []metrics.DayReport) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteRunChart(f, reports)
}
