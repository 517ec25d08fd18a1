package domain

type Championship struct {
	ChampionshipID string `db:"championship_id"`
	Season         int    `db:"season"`
	DivisionNum    int    `db:"division_num"`
	Name           string `db:"name"`
	Slug           string `db:"slug"`
	IsPlayoffs     bool   `db:"is_playoffs"`
	Game           string `db:"game"`
}

type Team struct {
	TeamID    string `db:"team_id"`
	Name      string `db:"name"`
	Avatar    string `db:"avatar"`
	UpdatedAt int64  `db:"updated_at"`
}

type Player struct {
	PlayerID  string `db:"player_id"`
	Nickname  string `db:"nickname"`
	UpdatedAt int64  `db:"updated_at"`
}

// Match is a match header. Nil fields never overwrite stored values.
type Match struct {
	MatchID         string  `db:"match_id"`
	ChampionshipID  string  `db:"championship_id"`
	CompetitionName *string `db:"competition_name"`
	Game            *string `db:"game"`
	Round           *int64  `db:"round"`
	BestOf          *int64  `db:"best_of"`
	ConfiguredAt    *int64  `db:"configured_at"`
	ScheduledAt     *int64  `db:"scheduled_at"`
	StartedAt       *int64  `db:"started_at"`
	FinishedAt      *int64  `db:"finished_at"`
	Status          *string `db:"status"`
	Team1ID         *string `db:"team1_id"`
	Team2ID         *string `db:"team2_id"`
	WinnerTeamID    *string `db:"winner_team_id"`
	LastSeenAt      int64   `db:"last_seen_at"`
}

// MapRow is one played or forfeited map of a match.
type MapRow struct {
	MatchID      string  `db:"match_id"`
	RoundIndex   int     `db:"round_index"`
	MapName      *string `db:"map_name"`
	ScoreTeam1   *int64  `db:"score_team1"`
	ScoreTeam2   *int64  `db:"score_team2"`
	WinnerTeamID *string `db:"winner_team_id"`
}

type MapVote struct {
	MatchID           string  `db:"match_id"`
	Seq               int     `db:"seq"`
	RoundNum          *int64  `db:"round_num"`
	MapName           *string `db:"map_name"`
	Status            string  `db:"status"`
	SelectedByFaction *string `db:"selected_by_faction"`
	SelectedByTeamID  *string `db:"selected_by_team_id"`
}

type PlayerStat struct {
	MatchID        string  `db:"match_id"`
	RoundIndex     int     `db:"round_index"`
	PlayerID       string  `db:"player_id"`
	TeamID         string  `db:"team_id"`
	Nickname       string  `db:"-"`
	Kills          int64   `db:"kills"`
	Deaths         int64   `db:"deaths"`
	Assists        int64   `db:"assists"`
	KD             float64 `db:"kd"`
	KR             float64 `db:"kr"`
	ADR            float64 `db:"adr"`
	HSPct          float64 `db:"hs_pct"`
	MVPs           int64   `db:"mvps"`
	SniperKills    int64   `db:"sniper_kills"`
	UtilityDamage  int64   `db:"utility_damage"`
	EnemiesFlashed int64   `db:"enemies_flashed"`
	FlashCount     int64   `db:"flash_count"`
	FlashSuccesses int64   `db:"flash_successes"`
	MK2K           int64   `db:"mk_2k"`
	MK3K           int64   `db:"mk_3k"`
	MK4K           int64   `db:"mk_4k"`
	MK5K           int64   `db:"mk_5k"`
	ClutchKills    int64   `db:"clutch_kills"`
	CL1v1Attempts  int64   `db:"cl_1v1_attempts"`
	CL1v1Wins      int64   `db:"cl_1v1_wins"`
	CL1v2Attempts  int64   `db:"cl_1v2_attempts"`
	CL1v2Wins      int64   `db:"cl_1v2_wins"`
	EntryCount     int64   `db:"entry_count"`
	EntryWins      int64   `db:"entry_wins"`
	PistolKills    int64   `db:"pistol_kills"`
	Damage         int64   `db:"damage"`
}

type TeamStat struct {
	MatchID         string  `db:"match_id"`
	RoundIndex      int     `db:"round_index"`
	TeamID          string  `db:"team_id"`
	TeamName        *string `db:"team_name"`
	FinalScore      *int64  `db:"final_score"`
	FirstHalfScore  *int64  `db:"first_half_score"`
	SecondHalfScore *int64  `db:"second_half_score"`
	OvertimeScore   *int64  `db:"overtime_score"`
	TeamWin         *int64  `db:"team_win"`
	TeamHeadshots   *int64  `db:"team_headshots"`
}

type MapCatalogEntry struct {
	MapID      string `db:"map_id"`
	PrettyName string `db:"pretty_name"`
	ImageSm    string `db:"image_sm"`
	ImageLg    string `db:"image_lg"`
	Game       string `db:"game"`
}

type SyncRun struct {
	ID             string `db:"id"` // nanoid
	RunID          string `db:"run_id"`
	ChampionshipID string `db:"championship_id"`
	StartedAt      int64  `db:"started_at"`
	FinishedAt     int64  `db:"finished_at"`
	Listed         int    `db:"listed"`
	Processed      int    `db:"processed"`
	Skipped        int    `db:"skipped"`
	Failed         int    `db:"failed"`
	NotFound       int    `db:"not_found"`
	BudgetExceeded bool   `db:"budget_exceeded"`
}
