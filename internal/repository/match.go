package repository

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     sqlx.ExtContext
	logger zerolog.Logger
}

func NewMatchRepository(db *sqlx.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

func (r *MatchRepository) WithTx(tx *sqlx.Tx) *MatchRepository {
	return &MatchRepository{db: tx, logger: r.logger}
}

// UpsertMatch writes a match header. Nil incoming fields keep the stored value.
func (r *MatchRepository) UpsertMatch(ctx context.Context, m domain.Match) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO matches (
  match_id, championship_id, competition_name, game, round, best_of,
  configured_at, scheduled_at, started_at, finished_at, status,
  team1_id, team2_id, winner_team_id, last_seen_at
) VALUES (
  :match_id, :championship_id, :competition_name, :game, :round, :best_of,
  :configured_at, :scheduled_at, :started_at, :finished_at, :status,
  :team1_id, :team2_id, :winner_team_id, :last_seen_at
)
ON CONFLICT(match_id) DO UPDATE SET
  championship_id  = excluded.championship_id,
  competition_name = COALESCE(excluded.competition_name, matches.competition_name),
  game             = COALESCE(excluded.game, matches.game),
  round            = COALESCE(excluded.round, matches.round),
  best_of          = COALESCE(excluded.best_of, matches.best_of),
  configured_at    = COALESCE(excluded.configured_at, matches.configured_at),
  scheduled_at     = COALESCE(excluded.scheduled_at, matches.scheduled_at),
  started_at       = COALESCE(excluded.started_at, matches.started_at),
  finished_at      = COALESCE(excluded.finished_at, matches.finished_at),
  status           = COALESCE(excluded.status, matches.status),
  team1_id         = COALESCE(excluded.team1_id, matches.team1_id),
  team2_id         = COALESCE(excluded.team2_id, matches.team2_id),
  winner_team_id   = COALESCE(excluded.winner_team_id, matches.winner_team_id),
  last_seen_at     = excluded.last_seen_at`, m)
	if err != nil {
		return fmt.Errorf("upsert match %s: %w", m.MatchID, err)
	}
	return nil
}

// GetMatch returns the stored header, nil when the match is unknown.
func (r *MatchRepository) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	var rows []domain.Match
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT * FROM matches WHERE match_id = ?`, matchID); err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// LastSeen returns when a sync pass last wrote the match, false when it is unknown.
func (r *MatchRepository) LastSeen(ctx context.Context, matchID string) (int64, bool, error) {
	var seen []int64
	err := sqlx.SelectContext(ctx, r.db, &seen, `SELECT COALESCE(last_seen_at, 0) FROM matches WHERE match_id = ?`, matchID)
	if err != nil {
		return 0, false, fmt.Errorf("last seen %s: %w", matchID, err)
	}
	if len(seen) == 0 {
		return 0, false, nil
	}
	return seen[0], true, nil
}

// UpsertMaps writes one row per map, updating only rows that differ.
func (r *MatchRepository) UpsertMaps(ctx context.Context, rows []domain.MapRow) error {
	for _, row := range rows {
		_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO maps (match_id, round_index, map_name, score_team1, score_team2, winner_team_id)
VALUES (:match_id, :round_index, :map_name, :score_team1, :score_team2, :winner_team_id)
ON CONFLICT(match_id, round_index) DO UPDATE SET
  map_name       = COALESCE(excluded.map_name, maps.map_name),
  score_team1    = excluded.score_team1,
  score_team2    = excluded.score_team2,
  winner_team_id = excluded.winner_team_id
WHERE COALESCE(excluded.map_name, maps.map_name) IS NOT maps.map_name
   OR excluded.score_team1 IS NOT maps.score_team1
   OR excluded.score_team2 IS NOT maps.score_team2
   OR excluded.winner_team_id IS NOT maps.winner_team_id`, row)
		if err != nil {
			return fmt.Errorf("upsert map %s/%d: %w", row.MatchID, row.RoundIndex, err)
		}
	}
	return nil
}

func (r *MatchRepository) ListMaps(ctx context.Context, matchID string) ([]domain.MapRow, error) {
	var rows []domain.MapRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT * FROM maps WHERE match_id = ? ORDER BY round_index`, matchID); err != nil {
		return nil, fmt.Errorf("list maps %s: %w", matchID, err)
	}
	return rows, nil
}

// ReplaceVotes clears the veto history of a match and writes it again.
func (r *MatchRepository) ReplaceVotes(ctx context.Context, matchID string, votes []domain.MapVote) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM map_votes WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("clear votes %s: %w", matchID, err)
	}
	for i, v := range votes {
		v.MatchID = matchID
		v.Seq = i + 1
		_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO map_votes (match_id, seq, round_num, map_name, status, selected_by_faction, selected_by_team_id)
VALUES (:match_id, :seq, :round_num, :map_name, :status, :selected_by_faction, :selected_by_team_id)`, v)
		if err != nil {
			return fmt.Errorf("insert vote %s/%d: %w", matchID, v.Seq, err)
		}
	}
	return nil
}

func (r *MatchRepository) ListVotes(ctx context.Context, matchID string) ([]domain.MapVote, error) {
	var rows []domain.MapVote
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT * FROM map_votes WHERE match_id = ? ORDER BY seq`, matchID); err != nil {
		return nil, fmt.Errorf("list votes %s: %w", matchID, err)
	}
	return rows, nil
}

// Snapshot reads everything the skip decision needs in a single statement.
func (r *MatchRepository) Snapshot(ctx context.Context, matchID string) (domain.MatchSnapshot, error) {
	var snap domain.MatchSnapshot
	err := sqlx.GetContext(ctx, r.db, &snap, `
SELECT
  m.match_id IS NOT NULL AS exists_row,
  m.status, m.scheduled_at, m.started_at, m.finished_at, m.team1_id, m.team2_id,
  EXISTS (SELECT 1 FROM maps WHERE match_id = q.id) AS has_maps,
  EXISTS (SELECT 1 FROM maps WHERE match_id = q.id AND map_name = ?) AS has_forfeit_map,
  EXISTS (SELECT 1 FROM player_stats WHERE match_id = q.id) AS has_player_stats
FROM (SELECT ? AS id) AS q
LEFT JOIN matches m ON m.match_id = q.id`, constants.ForfeitMapName, matchID)
	if err != nil {
		return domain.MatchSnapshot{}, fmt.Errorf("snapshot %s: %w", matchID, err)
	}
	return snap, nil
}

// CountRows counts the rows a match owns in one of its tables.
func (r *MatchRepository) CountRows(ctx context.Context, table, matchID string) (int, error) {
	switch table {
	case "matches", "maps", "map_votes", "player_stats", "team_stats":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM `+table+` WHERE match_id = ?`, matchID); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
