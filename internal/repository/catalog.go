package repository

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type MapCatalogRepository struct {
	db     sqlx.ExtContext
	logger zerolog.Logger
}

func NewMapCatalogRepository(db *sqlx.DB, logger zerolog.Logger) *MapCatalogRepository {
	return &MapCatalogRepository{db: db, logger: logger}
}

func (r *MapCatalogRepository) WithTx(tx *sqlx.Tx) *MapCatalogRepository {
	return &MapCatalogRepository{db: tx, logger: r.logger}
}

// Upsert merges display metadata; images are only replaced by non-empty values.
func (r *MapCatalogRepository) Upsert(ctx context.Context, entry domain.MapCatalogEntry, seenAt int64) error {
	args := map[string]any{
		"map_id":      entry.MapID,
		"pretty_name": entry.PrettyName,
		"image_sm":    entry.ImageSm,
		"image_lg":    entry.ImageLg,
		"game":        entry.Game,
		"seen_at":     seenAt,
	}
	_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO maps_catalog (map_id, pretty_name, image_sm, image_lg, game, first_seen_at, last_seen_at)
VALUES (:map_id, NULLIF(:pretty_name, ''), NULLIF(:image_sm, ''), NULLIF(:image_lg, ''), NULLIF(:game, ''), :seen_at, :seen_at)
ON CONFLICT(map_id) DO UPDATE SET
  pretty_name  = COALESCE(excluded.pretty_name, maps_catalog.pretty_name),
  image_sm     = COALESCE(excluded.image_sm, maps_catalog.image_sm),
  image_lg     = COALESCE(excluded.image_lg, maps_catalog.image_lg),
  game         = COALESCE(maps_catalog.game, excluded.game),
  last_seen_at = excluded.last_seen_at`, args)
	if err != nil {
		return fmt.Errorf("upsert map catalog %s: %w", entry.MapID, err)
	}
	return nil
}

func (r *MapCatalogRepository) AddToSeasonPool(ctx context.Context, season int, mapID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO map_pool_seasons (season, map_id) VALUES (?, ?)`, season, mapID)
	if err != nil {
		return fmt.Errorf("add %s to season %d pool: %w", mapID, season, err)
	}
	return nil
}

func (r *MapCatalogRepository) Get(ctx context.Context, mapID string) (*domain.MapCatalogEntry, error) {
	var rows []domain.MapCatalogEntry
	err := sqlx.SelectContext(ctx, r.db, &rows, `
SELECT map_id, COALESCE(pretty_name, '') AS pretty_name, COALESCE(image_sm, '') AS image_sm,
       COALESCE(image_lg, '') AS image_lg, COALESCE(game, '') AS game
FROM maps_catalog WHERE map_id = ?`, mapID)
	if err != nil {
		return nil, fmt.Errorf("get map catalog %s: %w", mapID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *MapCatalogRepository) SeasonPool(ctx context.Context, season int) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.db, &ids, `SELECT map_id FROM map_pool_seasons WHERE season = ? ORDER BY map_id`, season); err != nil {
		return nil, fmt.Errorf("season %d pool: %w", season, err)
	}
	return ids, nil
}
