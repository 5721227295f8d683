package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/thermogrid/config"
	"github.com/kilianp07/thermogrid/core/planlog"
)

var logsQuery planlog.Query

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the plan log",
	RunE:  queryLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsQuery.RunID, "run", "", "run id")
	logsCmd.Flags().IntVar(&logsQuery.FromDay, "from", 0, "first day")
	logsCmd.Flags().IntVar(&logsQuery.ToDay, "to", 0, "last day")
	rootCmd.AddCommand(logsCmd)
}

func queryLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := planlog.Open(cfg.PlanLog)
	if err != nil {
		return fmt.Errorf("plan log: %w", err)
	}
	defer func() { _ = store.Close() }()
	recs, err := store.Query(cmd.Context(), logsQuery)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range recs {
		fmt.Fprintf(out, "%s  %s  day %3d  fitness %.4f  served %4d  unserved %4d  deficit %.2f\n",
			r.Timestamp.Format("2006-01-02T15:04:05"), r.RunID, r.Day, r.Fitness, r.Served, r.Unserved, r.Deficit)
	}
	return nil
}
