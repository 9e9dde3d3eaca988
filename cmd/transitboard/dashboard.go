package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/transit-board/internal/present/terminal"
	"github.com/transit-board/internal/refresh"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Redraw the board in the terminal on every refresh",
	Args:  cobra.NoArgs,
	RunE:  dashboard,
}

var dashboardInterval time.Duration

func init() {
	dashboardCmd.Flags().DurationVarP(&dashboardInterval, "interval", "i", 0, "Refresh interval (defaults to REFRESH_INTERVAL)")
}

func dashboard(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	run := withInterval(cfg, dashboardInterval)
	m, err := refresh.NewManager(run, log)
	if err != nil {
		return err
	}

	printer := terminal.NewDashboard(os.Stdout, cfg.Sources).WithMetraRoute(cfg.Metra.RouteID)
	if err := m.Start(ctx, printer.Present); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")
	m.Stop()
	return nil
}
