package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kilianp07/thermogrid/api/plans"
	"github.com/kilianp07/thermogrid/config"
	"github.com/kilianp07/thermogrid/core/planlog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the plan log and metrics over HTTP",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := planlog.Open(cfg.PlanLog)
	if err != nil {
		return fmt.Errorf("plan log: %w", err)
	}
	defer func() { _ = store.Close() }()
	return plans.Serve(ctx, cfg.API.Addr, plans.NewMux(store, cfg.API.Token, prometheus.DefaultGatherer))
}
