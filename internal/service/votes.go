package service

import (
	"pappaliiga-stats/internal/api"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/domain"
	"sort"
)

func isPickLike(status string) bool {
	switch status {
	case "pick", "selected", "decider":
		return true
	}
	return false
}

// VotesFromDemocracy flattens the map veto tickets into ordered votes.
// Long histories get their last entry reclassified as decider or overflow.
func VotesFromDemocracy(matchID string, history *api.DemocracyHistory, pair TeamPair) []domain.MapVote {
	var votes []domain.MapVote
	for _, t := range history.MapTickets() {
		for _, e := range t.Entities {
			status := e.StatusLower()
			if status == "selected" {
				status = "pick"
			}
			sel := e.SelectedBy.String()
			votes = append(votes, domain.MapVote{
				MatchID:           matchID,
				RoundNum:          e.Round.Ptr(),
				MapName:           strPtr(e.MapName()),
				Status:            status,
				SelectedByFaction: strPtr(sel),
				SelectedByTeamID:  strPtr(ResolveTeamRef(sel, pair)),
			})
		}
	}
	if len(votes) == 0 {
		return nil
	}

	sort.SliceStable(votes, func(i, j int) bool {
		a, b := votes[i], votes[j]
		if (a.RoundNum == nil) != (b.RoundNum == nil) {
			return b.RoundNum == nil
		}
		if a.RoundNum != nil && *a.RoundNum != *b.RoundNum {
			return *a.RoundNum < *b.RoundNum
		}
		return deref(a.MapName) < deref(b.MapName)
	})

	if len(votes) >= constants.VoteDeciderThreshold {
		pickLike := 0
		for _, v := range votes {
			if isPickLike(v.Status) {
				pickLike++
			}
		}
		last := &votes[len(votes)-1]
		if pickLike >= constants.VoteMinPickLike {
			last.Status = "decider"
		} else {
			last.Status = "overflow"
			last.SelectedByFaction = nil
			last.SelectedByTeamID = nil
		}
	}

	for i := range votes {
		votes[i].Seq = i + 1
	}
	return votes
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
