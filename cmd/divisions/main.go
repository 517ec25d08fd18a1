package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"pappaliiga-stats/internal/config"
	fxmodules "pappaliiga-stats/internal/fx"
	"pappaliiga-stats/internal/service"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type options struct {
	out       string
	dryRun    bool
	minSeason int
}

func main() {
	var opts options
	flag.StringVar(&opts.out, "out", "", "divisions file to update (default DIVISIONS_PATH)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "print the merged list instead of writing it")
	flag.IntVar(&opts.minSeason, "min-season", 0, "ignore championships older than this season")
	flag.Parse()

	// discovery never touches the store, so only the api side of the graph is built
	app := fx.New(
		fxmodules.Module,
		fx.NopLogger,
		fx.Supply(opts),
		fx.Decorate(stderrLogger),
		fx.Invoke(runDiscovery),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDiscovery(opts options, discovery *service.DivisionDiscovery, cfg *config.Config, logger zerolog.Logger) error {
	path := cfg.DivisionsPath
	if opts.out != "" {
		path = opts.out
	}

	existing, err := config.ReadDivisions(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to read divisions")
		return err
	}

	discovered, err := discovery.Discover(context.Background(), cfg.OrganizerID, opts.minSeason)
	if err != nil {
		logger.Error().Err(err).Msg("failed to discover divisions")
		return err
	}

	merged := service.MergeDivisions(existing, discovered)
	logger.Info().
		Int("existing", len(existing)).
		Int("discovered", len(discovered)).
		Int("merged", len(merged)).
		Msg("divisions merged")

	if opts.dryRun {
		return printDivisions(os.Stdout, merged)
	}

	if err := config.WriteDivisions(path, merged); err != nil {
		logger.Error().Err(err).Msg("failed to write divisions")
		return err
	}
	logger.Info().Str("path", path).Msg("divisions written")
	return nil
}

// stdout carries the dry-run output, so logs go to stderr
func stderrLogger(l zerolog.Logger) zerolog.Logger {
	return l.Output(os.Stderr)
}

func printDivisions(w io.Writer, divisions []config.Division) error {
	data, err := sonic.ConfigStd.MarshalIndent(divisions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode divisions: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
