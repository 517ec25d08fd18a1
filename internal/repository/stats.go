package repository

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/database"
	"pappaliiga-stats/internal/domain"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var playerStatKeys = []string{"match_id", "round_index", "player_id"}

var playerStatColumns = []string{
	"team_id", "kills", "deaths", "assists", "kd", "kr", "adr", "hs_pct", "mvps",
	"sniper_kills", "utility_damage", "enemies_flashed", "flash_count", "flash_successes",
	"mk_2k", "mk_3k", "mk_4k", "mk_5k",
	"clutch_kills", "cl_1v1_attempts", "cl_1v1_wins", "cl_1v2_attempts", "cl_1v2_wins",
	"entry_count", "entry_wins", "pistol_kills", "damage",
}

type StatsRepository struct {
	db                sqlx.ExtContext
	logger            zerolog.Logger
	upsertPlayerStats string
}

func NewStatsRepository(db *sqlx.DB, caps *database.Capabilities, logger zerolog.Logger) *StatsRepository {
	cols := playerStatColumns
	if caps.HasTable("player_stats") {
		cols = caps.FilterColumns("player_stats", playerStatColumns)
		if len(cols) < len(playerStatColumns) {
			logger.Warn().
				Int("available", len(cols)).
				Int("known", len(playerStatColumns)).
				Msg("player_stats is missing columns, writing the available ones")
		}
	}
	return &StatsRepository{
		db:                db,
		logger:            logger,
		upsertPlayerStats: buildUpsertIfChanged("player_stats", playerStatKeys, cols),
	}
}

func (r *StatsRepository) WithTx(tx *sqlx.Tx) *StatsRepository {
	return &StatsRepository{db: tx, logger: r.logger, upsertPlayerStats: r.upsertPlayerStats}
}

// buildUpsertIfChanged renders an insert that only updates rows whose values differ.
func buildUpsertIfChanged(table string, keys, cols []string) string {
	all := append(append([]string{}, keys...), cols...)
	named := make([]string, len(all))
	for i, c := range all {
		named[i] = ":" + c
	}
	set := make([]string, len(cols))
	diff := make([]string, len(cols))
	for i, c := range cols {
		set[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		diff[i] = fmt.Sprintf("%s.%s IS NOT excluded.%s", table, c, c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(all, ", "), strings.Join(named, ", "))
	if len(cols) == 0 {
		fmt.Fprintf(&b, " ON CONFLICT(%s) DO NOTHING", strings.Join(keys, ", "))
		return b.String()
	}
	fmt.Fprintf(&b, " ON CONFLICT(%s) DO UPDATE SET %s WHERE %s",
		strings.Join(keys, ", "), strings.Join(set, ", "), strings.Join(diff, " OR "))
	return b.String()
}

func (r *StatsRepository) UpsertPlayerStats(ctx context.Context, rows []domain.PlayerStat) error {
	for _, row := range rows {
		if _, err := sqlx.NamedExecContext(ctx, r.db, r.upsertPlayerStats, row); err != nil {
			return fmt.Errorf("upsert player stats %s/%d/%s: %w", row.MatchID, row.RoundIndex, row.PlayerID, err)
		}
	}
	return nil
}

func (r *StatsRepository) UpsertTeamStats(ctx context.Context, rows []domain.TeamStat) error {
	for _, row := range rows {
		_, err := sqlx.NamedExecContext(ctx, r.db, `
INSERT INTO team_stats (
  match_id, round_index, team_id, team_name, final_score, first_half_score,
  second_half_score, overtime_score, team_win, team_headshots
) VALUES (
  :match_id, :round_index, :team_id, :team_name, :final_score, :first_half_score,
  :second_half_score, :overtime_score, :team_win, :team_headshots
)
ON CONFLICT(match_id, round_index, team_id) DO UPDATE SET
  team_name         = COALESCE(excluded.team_name, team_stats.team_name),
  final_score       = COALESCE(excluded.final_score, team_stats.final_score),
  first_half_score  = COALESCE(excluded.first_half_score, team_stats.first_half_score),
  second_half_score = COALESCE(excluded.second_half_score, team_stats.second_half_score),
  overtime_score    = COALESCE(excluded.overtime_score, team_stats.overtime_score),
  team_win          = COALESCE(excluded.team_win, team_stats.team_win),
  team_headshots    = COALESCE(excluded.team_headshots, team_stats.team_headshots)
WHERE COALESCE(excluded.team_name, team_stats.team_name) IS NOT team_stats.team_name
   OR COALESCE(excluded.final_score, team_stats.final_score) IS NOT team_stats.final_score
   OR COALESCE(excluded.first_half_score, team_stats.first_half_score) IS NOT team_stats.first_half_score
   OR COALESCE(excluded.second_half_score, team_stats.second_half_score) IS NOT team_stats.second_half_score
   OR COALESCE(excluded.overtime_score, team_stats.overtime_score) IS NOT team_stats.overtime_score
   OR COALESCE(excluded.team_win, team_stats.team_win) IS NOT team_stats.team_win
   OR COALESCE(excluded.team_headshots, team_stats.team_headshots) IS NOT team_stats.team_headshots`, row)
		if err != nil {
			return fmt.Errorf("upsert team stats %s/%d/%s: %w", row.MatchID, row.RoundIndex, row.TeamID, err)
		}
	}
	return nil
}

func (r *StatsRepository) ListPlayerStats(ctx context.Context, matchID string) ([]domain.PlayerStat, error) {
	var rows []domain.PlayerStat
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT * FROM player_stats WHERE match_id = ? ORDER BY round_index, player_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list player stats %s: %w", matchID, err)
	}
	return rows, nil
}

func (r *StatsRepository) ListTeamStats(ctx context.Context, matchID string) ([]domain.TeamStat, error) {
	var rows []domain.TeamStat
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT * FROM team_stats WHERE match_id = ? ORDER BY round_index, team_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list team stats %s: %w", matchID, err)
	}
	return rows, nil
}
