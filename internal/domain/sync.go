package domain

import "strings"

// TargetKind is how a listed match is handled.
type TargetKind string

const (
	TargetPast     TargetKind = "past"
	TargetUpcoming TargetKind = "upcoming"
)

// Outcome is the terminal state of one listed match in a pass.
type Outcome string

const (
	OutcomeSkipped            Outcome = "skipped"
	OutcomeBye                Outcome = "bye"
	OutcomeNotFound           Outcome = "not_found"
	OutcomeUpcomingHeaderOnly Outcome = "upcoming_header_only"
	OutcomePastFull           Outcome = "past_full"
	OutcomeFailed             Outcome = "failed"
)

// IsFinishedStatus reports whether a stored or listed status is terminal.
func IsFinishedStatus(status string) bool {
	switch strings.ToLower(status) {
	case "finished", "played", "closed":
		return true
	}
	return false
}

// MatchSummary is the header data of one listed match.
type MatchSummary struct {
	MatchID         string
	Status          string
	Target          TargetKind
	CompetitionName *string
	Game            *string
	Round           *int64
	BestOf          *int64
	ConfiguredAt    *int64
	ScheduledAt     *int64
	StartedAt       *int64
	FinishedAt      *int64
	Team1           TeamSide
	Team2           TeamSide
}

type TeamSide struct {
	TeamID string
	Name   string
	Avatar string
	Roster []Player
}

// MatchSnapshot is the locally stored state of one match, read in one statement.
type MatchSnapshot struct {
	Exists         bool    `db:"exists_row"`
	Status         *string `db:"status"`
	ScheduledAt    *int64  `db:"scheduled_at"`
	StartedAt      *int64  `db:"started_at"`
	FinishedAt     *int64  `db:"finished_at"`
	Team1ID        *string `db:"team1_id"`
	Team2ID        *string `db:"team2_id"`
	HasMaps        bool    `db:"has_maps"`
	HasForfeitMap  bool    `db:"has_forfeit_map"`
	HasPlayerStats bool    `db:"has_player_stats"`
}
