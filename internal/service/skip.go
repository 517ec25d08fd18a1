package service

import (
	"pappaliiga-stats/internal/domain"
	"strings"

	"github.com/rs/zerolog"
)

type SkipDecision struct {
	Skip   bool
	Reason string
}

type SkipDecider struct {
	logger zerolog.Logger
}

func NewSkipDecider(logger zerolog.Logger) *SkipDecider {
	return &SkipDecider{logger: logger}
}

// Decide reports whether a listed match needs no remote call at all.
// snap must come from a single read of the stored state.
func (d *SkipDecider) Decide(snap domain.MatchSnapshot, summary domain.MatchSummary) SkipDecision {
	if snap.Exists && domain.IsFinishedStatus(deref(snap.Status)) {
		if snap.HasPlayerStats {
			return SkipDecision{Skip: true, Reason: "finished with stats"}
		}
		if snap.HasMaps && snap.HasForfeitMap {
			return SkipDecision{Skip: true, Reason: "finished forfeit"}
		}
	}

	if summary.Target != domain.TargetPast && snap.Exists && headerUnchanged(snap, summary) {
		return SkipDecision{Skip: true, Reason: "header unchanged"}
	}
	return SkipDecision{}
}

func headerUnchanged(snap domain.MatchSnapshot, s domain.MatchSummary) bool {
	return sameString(snap.Status, s.Status) &&
		sameInt(snap.ScheduledAt, s.ScheduledAt) &&
		sameInt(snap.StartedAt, s.StartedAt) &&
		sameInt(snap.FinishedAt, s.FinishedAt) &&
		sameString(snap.Team1ID, s.Team1.TeamID) &&
		sameString(snap.Team2ID, s.Team2.TeamID)
}

// empty and missing compare equal
func sameString(stored *string, fresh string) bool {
	return strings.TrimSpace(deref(stored)) == strings.TrimSpace(fresh)
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
