package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/logger"
)

var rootCmd = &cobra.Command{
	Use:               "transitboard",
	Short:             "Chicago transit arrivals board",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	envFile string
	cfg     *config.Config
	log     logger.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load before reading configuration")

	rootCmd.AddCommand(serveCmd, printCmd, dashboardCmd, ledCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; the environment may already be populated
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Logging.Level)
	logCfg.FilePath = cfg.Logging.FilePath
	logCfg.DiscordURL = cfg.Logging.DiscordURL
	if cmd != serveCmd {
		// stdout belongs to the board in the terminal modes
		logCfg.Console = nil
	}
	log = logger.NewFromConfig(logCfg)

	log.Info("transit board starting",
		"mode", cmd.Name(),
		"sources", cfg.Sources,
		"log_level", cfg.Logging.Level,
		"weather", cfg.Weather.Enabled(),
	)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withInterval returns cfg, or a copy refreshing every d when d is set
func withInterval(c *config.Config, d time.Duration) *config.Config {
	if d <= 0 {
		return c
	}
	cp := *c
	cp.Refresh.Interval = d
	return &cp
}
