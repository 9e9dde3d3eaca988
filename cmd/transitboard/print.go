package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/transit-board/internal/present/terminal"
	"github.com/transit-board/internal/refresh"
	"github.com/transit-board/pkg/transit/models"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Fetch every enabled source once and print the board",
	Args:  cobra.NoArgs,
	RunE:  printBoard,
}

var onlySources []string

func init() {
	printCmd.Flags().StringSliceVarP(&onlySources, "source", "s", nil, "Restrict to the given sources (cta, bus, metra)")
}

func printBoard(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	run := cfg
	if len(onlySources) > 0 {
		srcs, err := parseSourceFlags(onlySources)
		if err != nil {
			return err
		}
		run = cfg.WithSources(srcs...)
	}

	m, err := refresh.NewManager(run, log)
	if err != nil {
		return err
	}

	printer := terminal.NewPrinter(os.Stdout, run.Sources).WithMetraRoute(run.Metra.RouteID)
	m.Refresher().Cycle(ctx, printer.Present)
	return nil
}

func parseSourceFlags(values []string) ([]models.Source, error) {
	var srcs []models.Source
	for _, v := range values {
		src, ok := models.ParseSource(strings.ToLower(strings.TrimSpace(v)))
		if !ok {
			return nil, fmt.Errorf("unknown source %q", v)
		}
		if !cfg.Enabled(src) {
			return nil, fmt.Errorf("source %q is not enabled in SOURCES", v)
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}
