package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type TeamRepository struct {
	db     sqlx.ExtContext
	logger zerolog.Logger
}

func NewTeamRepository(db *sqlx.DB, logger zerolog.Logger) *TeamRepository {
	return &TeamRepository{db: db, logger: logger}
}

func (r *TeamRepository) WithTx(tx *sqlx.Tx) *TeamRepository {
	return &TeamRepository{db: tx, logger: r.logger}
}

// Upsert stores a team. Name and avatar are only replaced by non-empty
// incoming values; a team without any avatar gets the default one.
func (r *TeamRepository) Upsert(ctx context.Context, team domain.Team) error {
	if team.TeamID == "" {
		return nil
	}

	args := map[string]any{
		"team_id":        team.TeamID,
		"name":           team.Name,
		"avatar":         team.Avatar,
		"default_avatar": constants.DefaultTeamAvatar,
		"updated_at":     team.UpdatedAt,
	}
	_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO teams (team_id, name, avatar, updated_at)
VALUES (:team_id, NULLIF(:name, ''), COALESCE(NULLIF(:avatar, ''), :default_avatar), :updated_at)
ON CONFLICT(team_id) DO UPDATE SET
  name       = COALESCE(NULLIF(:name, ''), teams.name),
  avatar     = COALESCE(NULLIF(:avatar, ''), NULLIF(teams.avatar, ''), :default_avatar),
  updated_at = excluded.updated_at
WHERE COALESCE(NULLIF(:name, ''), teams.name) IS NOT teams.name
   OR COALESCE(NULLIF(:avatar, ''), NULLIF(teams.avatar, ''), :default_avatar) IS NOT teams.avatar`, args)
	if err != nil {
		return fmt.Errorf("upsert team %s: %w", team.TeamID, err)
	}
	return nil
}

func (r *TeamRepository) Get(ctx context.Context, teamID string) (*domain.Team, error) {
	var t domain.Team
	err := sqlx.GetContext(ctx, r.db, &t, `
SELECT team_id, COALESCE(name, '') AS name, COALESCE(avatar, '') AS avatar, COALESCE(updated_at, 0) AS updated_at
FROM teams WHERE team_id = ?`, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team %s: %w", teamID, err)
	}
	return &t, nil
}

type PlayerRepository struct {
	db     sqlx.ExtContext
	logger zerolog.Logger
}

func NewPlayerRepository(db *sqlx.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: db, logger: logger}
}

func (r *PlayerRepository) WithTx(tx *sqlx.Tx) *PlayerRepository {
	return &PlayerRepository{db: tx, logger: r.logger}
}

// Upsert stores a player; the nickname is only replaced by a non-empty value.
func (r *PlayerRepository) Upsert(ctx context.Context, player domain.Player) error {
	if player.PlayerID == "" {
		return nil
	}

	_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO players (player_id, nickname, updated_at)
VALUES (:player_id, NULLIF(:nickname, ''), :updated_at)
ON CONFLICT(player_id) DO UPDATE SET
  nickname   = COALESCE(NULLIF(:nickname, ''), players.nickname),
  updated_at = excluded.updated_at
WHERE COALESCE(NULLIF(:nickname, ''), players.nickname) IS NOT players.nickname`, player)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", player.PlayerID, err)
	}
	return nil
}

func (r *PlayerRepository) UpsertBatch(ctx context.Context, players []domain.Player) error {
	for _, p := range players {
		if err := r.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *PlayerRepository) Get(ctx context.Context, playerID string) (*domain.Player, error) {
	var p domain.Player
	err := sqlx.GetContext(ctx, r.db, &p, `
SELECT player_id, COALESCE(nickname, '') AS nickname, COALESCE(updated_at, 0) AS updated_at
FROM players WHERE player_id = ?`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", playerID, err)
	}
	return &p, nil
}
