package service

import (
	"pappaliiga-stats/internal/api"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/domain"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var scoreRx = regexp.MustCompile(`^\s*(\d+)\s*[/:]\s*(\d+)\s*$`)

// TeamPair is the concrete (team1, team2) id pair of a match.
type TeamPair struct {
	Team1 string
	Team2 string
}

// ResolveTeamRef maps faction1/team1/1 and faction2/team2/2 onto the pair.
// Anything else is taken to be a team id already.
func ResolveTeamRef(ref string, pair TeamPair) string {
	ref = strings.TrimSpace(ref)
	switch strings.ToLower(ref) {
	case "":
		return ""
	case "faction1", "team1", "1":
		return pair.Team1
	case "faction2", "team2", "2":
		return pair.Team2
	}
	return ref
}

func isByeID(id string) bool {
	return strings.EqualFold(strings.TrimSpace(id), "bye")
}

func SummaryIsBye(s domain.MatchSummary) bool {
	return isByeID(s.Team1.TeamID) || isByeID(s.Team2.TeamID)
}

func DetailsIsBye(d *api.Match) bool {
	if d == nil {
		return false
	}
	return isByeID(d.Teams.Faction1.FactionID.String()) || isByeID(d.Teams.Faction2.FactionID.String())
}

// TargetFor classifies a listed status. Anything not finished is handled like upcoming.
func TargetFor(status string) domain.TargetKind {
	if domain.IsFinishedStatus(status) {
		return domain.TargetPast
	}
	return domain.TargetUpcoming
}

func SummaryFromItem(item api.Match) domain.MatchSummary {
	status := item.StatusLower()
	return domain.MatchSummary{
		MatchID:         item.MatchID(),
		Status:          status,
		Target:          TargetFor(status),
		CompetitionName: item.CompetitionName.Ptr(),
		Game:            strPtr(string(item.Game)),
		Round:           item.Round.Ptr(),
		BestOf:          item.BestOf.Ptr(),
		ConfiguredAt:    item.ConfiguredAt.Ptr(),
		ScheduledAt:     item.ScheduledAt.Ptr(),
		StartedAt:       item.StartedAt.Ptr(),
		FinishedAt:      item.FinishedAt.Ptr(),
		Team1:           sideFromFaction(item.Teams.Faction1),
		Team2:           sideFromFaction(item.Teams.Faction2),
	}
}

func sideFromFaction(f api.Faction) domain.TeamSide {
	side := domain.TeamSide{
		TeamID: f.FactionID.String(),
		Name:   f.Name.String(),
		Avatar: f.Avatar.String(),
	}
	for _, p := range f.Roster {
		if id := p.PlayerID.String(); id != "" {
			side.Roster = append(side.Roster, domain.Player{PlayerID: id, Nickname: p.Nickname.String()})
		}
	}
	return side
}

// DeriveTeamIDs finds the team pair from round data first: team names are
// matched against the detail factions, then the first two distinct round ids
// are used. Detail faction ids fill whatever is still missing.
func DeriveTeamIDs(details *api.Match, rounds []api.StatsRound) TeamPair {
	var f1Name, f2Name string
	if details != nil {
		f1Name = details.Teams.Faction1.Name.String()
		f2Name = details.Teams.Faction2.Name.String()
	}

	var pair TeamPair
	var seen []string
	for _, r := range rounds {
		for _, t := range r.Teams {
			id := t.TeamID()
			if id != "" && !contains(seen, id) {
				seen = append(seen, id)
			}
			name := t.Name()
			if name == "" {
				continue
			}
			if f1Name != "" && name == f1Name && pair.Team1 == "" {
				pair.Team1 = id
			}
			if f2Name != "" && name == f2Name && pair.Team2 == "" {
				pair.Team2 = id
			}
		}
	}

	if (pair.Team1 == "" || pair.Team2 == "") && len(seen) >= 2 {
		if pair.Team1 == "" {
			pair.Team1 = seen[0]
		}
		if pair.Team2 == "" {
			pair.Team2 = seen[1]
			for _, id := range seen {
				if id != pair.Team1 {
					pair.Team2 = id
					break
				}
			}
		}
	}

	if details != nil {
		if pair.Team1 == "" {
			pair.Team1 = details.Teams.Faction1.FactionID.String()
		}
		if pair.Team2 == "" {
			pair.Team2 = details.Teams.Faction2.FactionID.String()
		}
	}
	return pair
}

// PastKind is the classification of a finished match after stats are fetched.
type PastKind int

const (
	PastPlayed PastKind = iota
	PastForfeit
	PastNotFound
)

func (k PastKind) String() string {
	switch k {
	case PastForfeit:
		return "forfeit"
	case PastNotFound:
		return "not_found"
	}
	return "played"
}

// ClassifyPast: no rounds but some result is a forfeit, no rounds and no
// result at all is not_found.
func ClassifyPast(details *api.Match, rounds []api.StatsRound) PastKind {
	if len(rounds) > 0 {
		return PastPlayed
	}
	if details != nil && (len(details.DetailedResults) > 0 || details.Results.HasScore()) {
		return PastForfeit
	}
	return PastNotFound
}

// NormalizeForfeitScore turns a 1-0 map result into 13-0.
func NormalizeForfeitScore(s1, s2 int64) (int64, int64) {
	switch {
	case s1 == 1 && s2 == 0:
		return constants.ForfeitRoundsWon, 0
	case s1 == 0 && s2 == 1:
		return 0, constants.ForfeitRoundsWon
	}
	return s1, s2
}

// ForfeitMapRows builds the synthetic map rows of a forfeited match. Per-map
// detailed results are used when present, otherwise the aggregate map score
// is expanded into one 13-0 row per won map.
func ForfeitMapRows(matchID string, details *api.Match, pair TeamPair) []domain.MapRow {
	if details == nil {
		return nil
	}

	var rows []domain.MapRow
	for i, item := range details.DetailedResults {
		s1 := item.Factions["faction1"].Score
		s2 := item.Factions["faction2"].Score
		row := domain.MapRow{MatchID: matchID, RoundIndex: i + 1, MapName: strPtr(constants.ForfeitMapName)}
		if s1.Valid && s2.Valid {
			n1, n2 := NormalizeForfeitScore(s1.Value, s2.Value)
			row.ScoreTeam1, row.ScoreTeam2 = &n1, &n2
		} else {
			row.ScoreTeam1, row.ScoreTeam2 = s1.Ptr(), s2.Ptr()
		}
		winner := ResolveTeamRef(item.Winner.String(), pair)
		if winner == "" {
			winner = winnerFromScores(row.ScoreTeam1, row.ScoreTeam2, pair)
		}
		row.WinnerTeamID = strPtr(winner)
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		return rows
	}

	if !details.Results.HasScore() {
		return nil
	}
	s1 := details.Results.Score["faction1"]
	s2 := details.Results.Score["faction2"]
	winner := ResolveTeamRef(details.WinnerRef(), pair)

	if s1.Valid && s2.Valid && s1.Value >= 0 && s2.Value >= 0 && s1.Value+s2.Value > 0 {
		if s1.Value+s2.Value > constants.MaxForfeitMaps {
			n1, n2 := NormalizeForfeitScore(s1.Value, s2.Value)
			if winner == "" {
				winner = winnerFromScores(&n1, &n2, pair)
			}
			return []domain.MapRow{{
				MatchID: matchID, RoundIndex: 1, MapName: strPtr(constants.ForfeitMapName),
				ScoreTeam1: &n1, ScoreTeam2: &n2, WinnerTeamID: strPtr(winner),
			}}
		}
		idx := 0
		for range s1.Value {
			idx++
			rows = append(rows, forfeitRow(matchID, idx, true, pair))
		}
		for range s2.Value {
			idx++
			rows = append(rows, forfeitRow(matchID, idx, false, pair))
		}
		return rows
	}

	// 0-0 aggregate: one row towards the declared winner, if any
	switch {
	case winner != "" && winner == pair.Team1:
		return []domain.MapRow{forfeitRow(matchID, 1, true, pair)}
	case winner != "" && winner == pair.Team2:
		return []domain.MapRow{forfeitRow(matchID, 1, false, pair)}
	}
	var zero int64
	return []domain.MapRow{{
		MatchID: matchID, RoundIndex: 1, MapName: strPtr(constants.ForfeitMapName),
		ScoreTeam1: &zero, ScoreTeam2: &zero, WinnerTeamID: strPtr(winner),
	}}
}

func forfeitRow(matchID string, idx int, team1Won bool, pair TeamPair) domain.MapRow {
	won, lost := int64(constants.ForfeitRoundsWon), int64(0)
	row := domain.MapRow{MatchID: matchID, RoundIndex: idx, MapName: strPtr(constants.ForfeitMapName)}
	if team1Won {
		row.ScoreTeam1, row.ScoreTeam2 = &won, &lost
		row.WinnerTeamID = strPtr(pair.Team1)
	} else {
		row.ScoreTeam1, row.ScoreTeam2 = &lost, &won
		row.WinnerTeamID = strPtr(pair.Team2)
	}
	return row
}

func winnerFromScores(s1, s2 *int64, pair TeamPair) string {
	if s1 == nil || s2 == nil || *s1 == *s2 {
		return ""
	}
	if *s1 > *s2 {
		return pair.Team1
	}
	return pair.Team2
}

// ParseMapScore parses "13 / 7" or "13:7".
func ParseMapScore(score string) (*int64, *int64) {
	m := scoreRx.FindStringSubmatch(score)
	if m == nil {
		return nil, nil
	}
	s1 := api.FlexString(m[1]).Int()
	s2 := api.FlexString(m[2]).Int()
	return s1.Ptr(), s2.Ptr()
}

// MapRowsFromStats returns one row per played map, in round order.
func MapRowsFromStats(matchID string, rounds []api.StatsRound, pair TeamPair) []domain.MapRow {
	rows := make([]domain.MapRow, 0, len(rounds))
	for i, r := range rounds {
		s1, s2 := ParseMapScore(r.Score())
		rows = append(rows, domain.MapRow{
			MatchID:      matchID,
			RoundIndex:   i + 1,
			MapName:      strPtr(r.Map()),
			ScoreTeam1:   s1,
			ScoreTeam2:   s2,
			WinnerTeamID: strPtr(ResolveTeamRef(r.Winner(), pair)),
		})
	}
	return rows
}

// FillMapNames sets missing names in order. Picks beyond the played maps are ignored.
func FillMapNames(rows []domain.MapRow, picks []string) {
	for i, name := range picks {
		if i >= len(rows) {
			return
		}
		if rows[i].MapName == nil && name != "" {
			rows[i].MapName = strPtr(name)
		}
	}
}

func anyMapNamed(rows []domain.MapRow) bool {
	for _, r := range rows {
		if r.MapName != nil {
			return true
		}
	}
	return false
}

// DemocracyPicks returns picked maps in veto order, without duplicates.
func DemocracyPicks(history *api.DemocracyHistory) []string {
	type cand struct {
		round int64
		name  string
	}
	var cands []cand
	for _, t := range history.MapTickets() {
		for _, e := range t.Entities {
			switch e.StatusLower() {
			case "pick", "decider", "selected":
			default:
				continue
			}
			name := e.MapName()
			if name == "" {
				continue
			}
			round := int64(1 << 62)
			if e.Round.Valid {
				round = e.Round.Value
			}
			cands = append(cands, cand{round: round, name: name})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].round < cands[j].round })

	var picks []string
	for _, c := range cands {
		if !contains(picks, c.name) {
			picks = append(picks, c.name)
		}
	}
	return picks
}

func DetailPicks(details *api.Match) []string {
	if details == nil {
		return nil
	}
	var picks []string
	for _, p := range details.Voting.Map.Pick {
		if s := p.String(); s != "" {
			picks = append(picks, s)
		}
	}
	return picks
}

// PlayedMapRows builds map rows from stats and names them from the veto
// history, or from the detail voting picks when no row got a name.
func PlayedMapRows(matchID string, rounds []api.StatsRound, details *api.Match, history *api.DemocracyHistory, pair TeamPair) []domain.MapRow {
	rows := MapRowsFromStats(matchID, rounds, pair)
	FillMapNames(rows, DemocracyPicks(history))
	if !anyMapNamed(rows) {
		FillMapNames(rows, DetailPicks(details))
	}
	return rows
}

func PlayerStatRows(matchID string, rounds []api.StatsRound, pair TeamPair) []domain.PlayerStat {
	var rows []domain.PlayerStat
	for i, r := range rounds {
		for _, t := range r.Teams {
			teamID := ResolveTeamRef(t.TeamID(), pair)
			if teamID == "" {
				continue
			}
			for _, p := range t.Players {
				playerID := p.PlayerID()
				if playerID == "" {
					continue
				}
				ps := p.Stats()
				rows = append(rows, domain.PlayerStat{
					MatchID:        matchID,
					RoundIndex:     i + 1,
					PlayerID:       playerID,
					TeamID:         teamID,
					Nickname:       p.Nickname(),
					Kills:          ps.IntOr("Kills"),
					Deaths:         ps.IntOr("Deaths"),
					Assists:        ps.IntOr("Assists"),
					KD:             ps.FloatOr("K/D Ratio"),
					KR:             ps.FloatOr("K/R Ratio"),
					ADR:            ps.FloatOr("ADR"),
					HSPct:          ps.FloatOr("Headshots %", "HS %"),
					MVPs:           ps.IntOr("MVPs"),
					SniperKills:    ps.IntOr("Sniper Kills"),
					UtilityDamage:  ps.IntOr("Utility Damage"),
					EnemiesFlashed: ps.IntOr("Enemies Flashed"),
					FlashCount:     ps.IntOr("Flash Count", "Flashbangs Thrown"),
					FlashSuccesses: ps.IntOr("Flash Successes", "Successful Flashes"),
					MK2K:           ps.IntOr("Double Kills"),
					MK3K:           ps.IntOr("Triple Kills"),
					MK4K:           ps.IntOr("Quadro Kills"),
					MK5K:           ps.IntOr("Penta Kills"),
					ClutchKills:    ps.IntOr("Clutch Kills"),
					CL1v1Attempts:  ps.IntOr("1v1Count", "1v1 Attempts"),
					CL1v1Wins:      ps.IntOr("1v1Wins", "1v1 Wins"),
					CL1v2Attempts:  ps.IntOr("1v2Count", "1v2 Attempts"),
					CL1v2Wins:      ps.IntOr("1v2Wins", "1v2 Wins"),
					EntryCount:     ps.IntOr("Entry Count", "Entry Duels"),
					EntryWins:      ps.IntOr("Entry Wins"),
					PistolKills:    ps.IntOr("Pistol Kills"),
					Damage:         ps.IntOr("Damage"),
				})
			}
		}
	}
	return rows
}

func TeamStatRows(matchID string, rounds []api.StatsRound, pair TeamPair) []domain.TeamStat {
	var rows []domain.TeamStat
	for i, r := range rounds {
		for _, t := range r.Teams {
			teamID := ResolveTeamRef(t.TeamID(), pair)
			if teamID == "" {
				continue
			}
			ts := t.TeamStats
			rows = append(rows, domain.TeamStat{
				MatchID:         matchID,
				RoundIndex:      i + 1,
				TeamID:          teamID,
				TeamName:        strPtr(t.DisplayName()),
				FinalScore:      ts.Int("Final Score").Ptr(),
				FirstHalfScore:  ts.Int("First Half Score").Ptr(),
				SecondHalfScore: ts.Int("Second Half Score").Ptr(),
				OvertimeScore:   ts.Int("Overtime score", "Overtime Score").Ptr(),
				TeamWin:         ts.Int("Team Win").Ptr(),
				TeamHeadshots:   ts.Int("Team Headshots").Ptr(),
			})
		}
	}
	return rows
}

// UniquePlayers returns the players seen in stat rows, last nickname wins.
func UniquePlayers(rows []domain.PlayerStat, updatedAt int64) []domain.Player {
	idx := make(map[string]int, len(rows))
	var out []domain.Player
	for _, r := range rows {
		if i, ok := idx[r.PlayerID]; ok {
			if r.Nickname != "" {
				out[i].Nickname = r.Nickname
			}
			continue
		}
		idx[r.PlayerID] = len(out)
		out = append(out, domain.Player{PlayerID: r.PlayerID, Nickname: r.Nickname, UpdatedAt: updatedAt})
	}
	return out
}

// CatalogFromDetails extracts map display metadata from the voting payload.
func CatalogFromDetails(details *api.Match, game string) []domain.MapCatalogEntry {
	if details == nil {
		return nil
	}
	var out []domain.MapCatalogEntry
	for _, e := range details.Voting.Map.Entities {
		id := e.CatalogID()
		if id == "" {
			continue
		}
		out = append(out, domain.MapCatalogEntry{
			MapID:      strings.ToLower(id),
			PrettyName: PrettyMapName(e.Name.String(), id),
			ImageSm:    e.ImageSm.String(),
			ImageLg:    e.ImageLg.String(),
			Game:       game,
		})
	}
	return out
}

func PrettyMapName(raw, mapID string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "dust2") || strings.Contains(strings.ToLower(mapID), "dust2") {
		return "Dust II"
	}
	if raw != "" {
		return raw
	}
	slug := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(mapID, "de_", ""), "_", " "))
	if slug == "" {
		return mapID
	}
	return titleCase(slug)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
