package repository

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/domain"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SyncRunRepository struct {
	db     sqlx.ExtContext
	logger zerolog.Logger
}

func NewSyncRunRepository(db *sqlx.DB, logger zerolog.Logger) *SyncRunRepository {
	return &SyncRunRepository{db: db, logger: logger}
}

func (r *SyncRunRepository) WithTx(tx *sqlx.Tx) *SyncRunRepository {
	return &SyncRunRepository{db: tx, logger: r.logger}
}

// Insert records one finished division pass.
func (r *SyncRunRepository) Insert(ctx context.Context, run domain.SyncRun) (string, error) {
	if run.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate nanoid: %w", err)
		}
		run.ID = id
	}

	_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO sync_runs (
  id, run_id, championship_id, started_at, finished_at,
  listed, processed, skipped, failed, not_found, budget_exceeded
) VALUES (
  :id, :run_id, :championship_id, :started_at, :finished_at,
  :listed, :processed, :skipped, :failed, :not_found, :budget_exceeded
)`, run)
	if err != nil {
		return "", fmt.Errorf("insert sync run: %w", err)
	}
	return run.ID, nil
}

func (r *SyncRunRepository) Latest(ctx context.Context, championshipID string) (*domain.SyncRun, error) {
	var rows []domain.SyncRun
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT * FROM sync_runs WHERE championship_id = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("latest sync run %s: %w", championshipID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
