package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/thermogrid/app"
	"github.com/kilianp07/thermogrid/config"
)

var (
	adequacyRuns int
	adequacyDays int
)

var adequacyCmd = &cobra.Command{
	Use:   "adequacy",
	Short: "Estimate the loss of load probability of the fleet",
	RunE:  runAdequacy,
}

func init() {
	adequacyCmd.Flags().IntVar(&adequacyRuns, "runs", 0, "Monte Carlo runs (defaults to adequacy.runs)")
	adequacyCmd.Flags().IntVar(&adequacyDays, "days", 0, "days per run (defaults to adequacy.days)")
	rootCmd.AddCommand(adequacyCmd)
}

func runAdequacy(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
		ac := cfg.Adequacy
		if adequacyRuns > 0 {
			ac.Runs = adequacyRuns
		}
		if adequacyDays > 0 {
			ac.Days = adequacyDays
		}
		res, err := svc.Adequacy(ctx, ac)
		if err != nil {
			return err
		}
		s := res.Summary
		fmt.Fprintf(cmd.OutOrStdout(), "runs %d  days %d  LOLP %.4f  capacity %.2f ± %.2f  mean deficit %.2f\n",
			s.Runs, s.Days, s.LOLP, s.MeanCapacity, s.StdCapacity, s.MeanDeficit)
		return nil
	})
}
