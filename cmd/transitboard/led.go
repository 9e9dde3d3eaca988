package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/transit-board/internal/present/led"
	"github.com/transit-board/internal/refresh"
)

var ledCmd = &cobra.Command{
	Use:   "led",
	Short: "Drive the 32x32 LED board, rendered to the terminal",
	Args:  cobra.NoArgs,
	RunE:  runLED,
}

var ledInterval time.Duration

func init() {
	ledCmd.Flags().DurationVarP(&ledInterval, "interval", "i", 0, "Refresh interval (defaults to REFRESH_INTERVAL)")
}

func runLED(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	run := withInterval(cfg, ledInterval)
	m, err := refresh.NewManager(run, log)
	if err != nil {
		return err
	}

	matrix := led.NewConsoleMatrix(os.Stdout, led.OptionsFromConfig(cfg.LED))
	presenter := led.NewPresenter(matrix, cfg.LED, cfg.Board.Location)
	if err := m.Start(ctx, presenter.Present); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")
	m.Stop()
	if err := presenter.Close(); err != nil {
		log.Warn("Failed to clear matrix", "error", err)
	}
	return nil
}
