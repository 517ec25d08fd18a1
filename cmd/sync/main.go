package main

import (
	"context"
	"flag"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/constants"
	fxmodules "pappaliiga-stats/internal/fx"
	"pappaliiga-stats/internal/service"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	dbPath := flag.String("db", "", "SQLite store path (overrides DB_PATH)")
	divisionsPath := flag.String("divisions", "", "divisions JSON file (overrides DIVISIONS_PATH)")
	flag.Parse()

	fx.New(
		fxmodules.Module,
		fx.Decorate(func(cfg *config.Config) *config.Config {
			if *dbPath != "" {
				cfg.DBPath = *dbPath
			}
			if *divisionsPath != "" {
				cfg.DivisionsPath = *divisionsPath
			}
			return cfg
		}),
		fx.Invoke(runSync),
	).Run()
}

func runSync(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	syncer *service.Syncer,
	cfg *config.Config,
	db *sqlx.DB,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(ctx)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			divisions, err := config.LoadDivisions(cfg.DivisionsPath, cfg.CurrentSeason)
			if err != nil {
				cancel()
				return err
			}
			logger.Info().Int("divisions", len(divisions)).Int("min_season", cfg.CurrentSeason).Msg("sync starting")

			g.Go(func() error {
				started := time.Now()
				results, err := syncer.Run(gCtx, divisions)
				if err != nil {
					logger.Warn().Err(err).Msg("sync stopped early")
				}

				var processed, skipped, failed, notFound int
				for _, r := range results {
					processed += r.Processed
					skipped += r.Skipped
					failed += r.Failed
					notFound += r.NotFound
				}
				logger.Info().
					Int("divisions", len(results)).
					Int("processed", processed).
					Int("skipped", skipped).
					Int("failed", failed).
					Int("not_found", notFound).
					Dur("took", time.Since(started)).
					Msg("sync finished")

				// per-match failures never change the exit code
				if err := shutdowner.Shutdown(); err != nil {
					logger.Warn().Err(err).Msg("shutdown request failed")
				}
				return nil
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("stopping sync")
			cancel()

			done := make(chan error, 1)
			go func() { done <- g.Wait() }()

			waitCtx, waitCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer waitCancel()
			select {
			case <-done:
			case <-waitCtx.Done():
				logger.Warn().Msg("sync did not stop in time")
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("sync stopped")
			return nil
		},
	})
}
