package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pappaliiga-stats/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type ChampionshipRepository struct {
	db     sqlx.ExtContext
	logger zerolog.Logger
}

func NewChampionshipRepository(db *sqlx.DB, logger zerolog.Logger) *ChampionshipRepository {
	return &ChampionshipRepository{db: db, logger: logger}
}

func (r *ChampionshipRepository) WithTx(tx *sqlx.Tx) *ChampionshipRepository {
	return &ChampionshipRepository{db: tx, logger: r.logger}
}

const selectChampionship = `
SELECT championship_id, COALESCE(season, 0) AS season, COALESCE(division_num, 0) AS division_num,
       COALESCE(name, '') AS name, COALESCE(slug, '') AS slug, is_playoffs, COALESCE(game, '') AS game
FROM championships`

func (r *ChampionshipRepository) Get(ctx context.Context, championshipID string) (*domain.Championship, error) {
	var c domain.Championship
	err := sqlx.GetContext(ctx, r.db, &c, selectChampionship+` WHERE championship_id = ?`, championshipID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get championship %s: %w", championshipID, err)
	}
	return &c, nil
}

// ChampionshipByDivision finds the stored championship of a division slot.
func (r *ChampionshipRepository) ChampionshipByDivision(ctx context.Context, season, divisionNum int, playoffs bool) (*domain.Championship, error) {
	var c domain.Championship
	err := sqlx.GetContext(ctx, r.db, &c,
		selectChampionship+` WHERE season = ? AND division_num = ? AND is_playoffs = ? ORDER BY championship_id LIMIT 1`,
		season, divisionNum, playoffs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get championship by division: %w", err)
	}
	return &c, nil
}

// Upsert merges a configured championship and returns the canonical row.
// A row already stored for the same (season, division, playoffs) slot keeps
// its id; blank local fields are filled, non-empty ones are never overwritten.
func (r *ChampionshipRepository) Upsert(ctx context.Context, c domain.Championship) (domain.Championship, error) {
	existing, err := r.ChampionshipByDivision(ctx, c.Season, c.DivisionNum, c.IsPlayoffs)
	if err != nil {
		return domain.Championship{}, err
	}
	if existing != nil && existing.ChampionshipID != c.ChampionshipID {
		r.logger.Debug().
			Str("configured_id", c.ChampionshipID).
			Str("canonical_id", existing.ChampionshipID).
			Msg("championship already stored for division, merging")
		c.ChampionshipID = existing.ChampionshipID
	}

	_, err = sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO championships (championship_id, season, division_num, name, slug, is_playoffs, game)
VALUES (:championship_id, :season, :division_num, NULLIF(:name, ''), NULLIF(:slug, ''), :is_playoffs, NULLIF(:game, ''))
ON CONFLICT(championship_id) DO UPDATE SET
  season       = COALESCE(championships.season, excluded.season),
  division_num = COALESCE(championships.division_num, excluded.division_num),
  name         = COALESCE(NULLIF(championships.name, ''), excluded.name),
  slug         = COALESCE(NULLIF(championships.slug, ''), excluded.slug),
  game         = COALESCE(NULLIF(championships.game, ''), excluded.game)
WHERE championships.season IS NULL
   OR championships.division_num IS NULL
   OR COALESCE(championships.name, '') = '' AND excluded.name IS NOT NULL
   OR COALESCE(championships.slug, '') = '' AND excluded.slug IS NOT NULL
   OR COALESCE(championships.game, '') = '' AND excluded.game IS NOT NULL`, c)
	if err != nil {
		return domain.Championship{}, fmt.Errorf("upsert championship %s: %w", c.ChampionshipID, err)
	}

	stored, err := r.Get(ctx, c.ChampionshipID)
	if err != nil {
		return domain.Championship{}, err
	}
	if stored == nil {
		return domain.Championship{}, fmt.Errorf("championship %s missing after upsert", c.ChampionshipID)
	}
	return *stored, nil
}
