package main

import (
	"github.com/spf13/cobra"

	"github.com/transit-board/internal/present/web"
	"github.com/transit-board/internal/refresh"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board, LED preview and JSON API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	// Every page load runs its own cycle, so no background scheduler is started
	m, err := refresh.NewManager(cfg, log)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(cfg, m.Refresher(), log)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("HTTP server error", "error", err)
		return err
	}
	log.Info("transit board stopped")
	return nil
}
