package api

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// FlexString accepts a JSON string, number or bool. null, objects and arrays decode as empty.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := sonic.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case data[0] == '{', data[0] == '[':
		*s = ""
	default:
		*s = FlexString(data)
	}
	return nil
}

func (s FlexString) String() string { return strings.TrimSpace(string(s)) }

func (s FlexString) Ptr() *string {
	v := s.String()
	if v == "" {
		return nil
	}
	return &v
}

// Int parses the value as an integer, accepting float text and comma decimals.
func (s FlexString) Int() FlexInt { return parseFlexInt(s.String()) }

func (s FlexString) Float() (float64, bool) {
	v := strings.ReplaceAll(s.String(), ",", ".")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FlexInt accepts a JSON number, a numeric string or null.
type FlexInt struct {
	Value int64
	Valid bool
}

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = s.Int()
	return nil
}

func (i FlexInt) Ptr() *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}

func parseFlexInt(v string) FlexInt {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	if v == "" {
		return FlexInt{}
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return FlexInt{Value: n, Valid: true}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return FlexInt{}
	}
	return FlexInt{Value: int64(f), Valid: true}
}

func firstNonEmpty(values ...FlexString) string {
	for _, v := range values {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

// GameRef is either a bare game id or an object with a name.
type GameRef string

func (g *GameRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name FlexString `json:"name"`
		}
		if err := sonic.Unmarshal(data, &obj); err != nil {
			return err
		}
		*g = GameRef(obj.Name.String())
		return nil
	}
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*g = GameRef(s.String())
	return nil
}

// StatMap is a loosely typed stats object keyed by display names.
type StatMap map[string]FlexString

// Str returns the first non-empty value among keys.
func (m StatMap) Str(keys ...string) string {
	for _, k := range keys {
		if v := m[k].String(); v != "" {
			return v
		}
	}
	return ""
}

func (m StatMap) Int(keys ...string) FlexInt {
	return parseFlexInt(m.Str(keys...))
}

// IntOr returns the first parseable value, or zero.
func (m StatMap) IntOr(keys ...string) int64 {
	for _, k := range keys {
		if v := m[k].Int(); v.Valid {
			return v.Value
		}
	}
	return 0
}

func (m StatMap) FloatOr(keys ...string) float64 {
	for _, k := range keys {
		if f, ok := m[k].Float(); ok {
			return f
		}
	}
	return 0
}

type MatchList struct {
	Items []Match `json:"items"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Match is both a championship list item and the match detail payload.
type Match struct {
	MatchIDRaw      FlexString       `json:"match_id"`
	IDRaw           FlexString       `json:"id"`
	Status          FlexString       `json:"status"`
	CompetitionName FlexString       `json:"competition_name"`
	Game            GameRef          `json:"game"`
	Round           FlexInt          `json:"round"`
	BestOf          FlexInt          `json:"best_of"`
	ConfiguredAt    FlexInt          `json:"configured_at"`
	ScheduledAt     FlexInt          `json:"scheduled_at"`
	StartedAt       FlexInt          `json:"started_at"`
	FinishedAt      FlexInt          `json:"finished_at"`
	Teams           Factions         `json:"teams"`
	Results         Results          `json:"results"`
	DetailedResults []DetailedResult `json:"detailed_results"`
	WinnerTeamID    FlexString       `json:"winner_team_id"`
	Voting          Voting           `json:"voting"`
}

func (m Match) MatchID() string { return firstNonEmpty(m.MatchIDRaw, m.IDRaw) }

func (m Match) StatusLower() string { return strings.ToLower(m.Status.String()) }

type Factions struct {
	Faction1 Faction `json:"faction1"`
	Faction2 Faction `json:"faction2"`
}

type Faction struct {
	FactionID FlexString     `json:"faction_id"`
	Name      FlexString     `json:"name"`
	Avatar    FlexString     `json:"avatar"`
	Roster    []RosterPlayer `json:"roster"`
}

type RosterPlayer struct {
	PlayerID FlexString `json:"player_id"`
	Nickname FlexString `json:"nickname"`
}

type Results struct {
	Winner       FlexString         `json:"winner"`
	WinnerTeamID FlexString         `json:"winner_team_id"`
	Score        map[string]FlexInt `json:"score"`
}

// WinnerRef returns the raw winner reference, falling back to the match level field.
func (m Match) WinnerRef() string {
	return firstNonEmpty(m.Results.Winner, m.Results.WinnerTeamID, m.WinnerTeamID)
}

// HasScore reports whether results.score carries anything.
func (r Results) HasScore() bool { return len(r.Score) > 0 }

type DetailedResult struct {
	Winner   FlexString                 `json:"winner"`
	Factions map[string]DetailedFaction `json:"factions"`
}

type DetailedFaction struct {
	Score FlexInt `json:"score"`
}

type Voting struct {
	Map VotingMap `json:"map"`
}

type VotingMap struct {
	Entities []VotingEntity `json:"entities"`
	Pick     []FlexString   `json:"pick"`
}

type VotingEntity struct {
	ClassName FlexString `json:"class_name"`
	GameMapID FlexString `json:"game_map_id"`
	GUID      FlexString `json:"guid"`
	Name      FlexString `json:"name"`
	ImageSm   FlexString `json:"image_sm"`
	ImageLg   FlexString `json:"image_lg"`
}

// CatalogID prefers class_name, then game_map_id, then guid.
func (e VotingEntity) CatalogID() string { return firstNonEmpty(e.ClassName, e.GameMapID, e.GUID) }

type MatchStats struct {
	RoundsRaw   []StatsRound `json:"rounds"`
	RoundsStats []StatsRound `json:"roundsStats"`
}

func (s *MatchStats) Rounds() []StatsRound {
	if s == nil {
		return nil
	}
	if len(s.RoundsRaw) > 0 {
		return s.RoundsRaw
	}
	return s.RoundsStats
}

type StatsRound struct {
	RoundStats StatMap     `json:"round_stats"`
	MapRaw     FlexString  `json:"map"`
	MapName    FlexString  `json:"map_name"`
	Teams      []StatsTeam `json:"teams"`
}

func (r StatsRound) Map() string {
	if v := r.RoundStats.Str("Map"); v != "" {
		return v
	}
	return firstNonEmpty(r.MapRaw, r.MapName)
}

func (r StatsRound) Score() string { return r.RoundStats.Str("Score", "score") }

func (r StatsRound) Winner() string { return r.RoundStats.Str("Winner", "winner") }

type StatsTeam struct {
	TeamIDRaw FlexString    `json:"team_id"`
	IDRaw     FlexString    `json:"id"`
	FactionID FlexString    `json:"faction_id"`
	NameRaw   FlexString    `json:"name"`
	TeamRaw   FlexString    `json:"team"`
	TeamStats StatMap       `json:"team_stats"`
	Players   []StatsPlayer `json:"players"`
}

func (t StatsTeam) TeamID() string { return firstNonEmpty(t.TeamIDRaw, t.IDRaw, t.FactionID) }

// Name is the plain team name used to match against detail factions.
func (t StatsTeam) Name() string { return firstNonEmpty(t.NameRaw, t.TeamRaw) }

// DisplayName prefers the name reported in team_stats.
func (t StatsTeam) DisplayName() string {
	if v := t.TeamStats.Str("Team"); v != "" {
		return v
	}
	return t.Name()
}

type StatsPlayer struct {
	PlayerIDRaw FlexString `json:"player_id"`
	IDRaw       FlexString `json:"id"`
	NicknameRaw FlexString `json:"nickname"`
	NameRaw     FlexString `json:"name"`
	PlayerStats StatMap    `json:"player_stats"`
	StatsAlt    StatMap    `json:"stats"`
}

func (p StatsPlayer) PlayerID() string { return firstNonEmpty(p.PlayerIDRaw, p.IDRaw) }

func (p StatsPlayer) Nickname() string { return firstNonEmpty(p.NicknameRaw, p.NameRaw) }

func (p StatsPlayer) Stats() StatMap {
	if len(p.PlayerStats) > 0 {
		return p.PlayerStats
	}
	if p.StatsAlt != nil {
		return p.StatsAlt
	}
	return StatMap{}
}

type DemocracyHistory struct {
	Payload *DemocracyPayload `json:"payload"`
}

type DemocracyPayload struct {
	Tickets []Ticket `json:"tickets"`
}

type Ticket struct {
	EntityType FlexString     `json:"entity_type"`
	Entities   []TicketEntity `json:"entities"`
}

func (t Ticket) IsMap() bool { return strings.EqualFold(t.EntityType.String(), "map") }

// MapTickets returns only the map veto tickets.
func (h *DemocracyHistory) MapTickets() []Ticket {
	if h == nil || h.Payload == nil {
		return nil
	}
	out := make([]Ticket, 0, len(h.Payload.Tickets))
	for _, t := range h.Payload.Tickets {
		if t.IsMap() {
			out = append(out, t)
		}
	}
	return out
}

type TicketEntity struct {
	GUID       FlexString `json:"guid"`
	GameMapID  FlexString `json:"game_map_id"`
	ClassName  FlexString `json:"class_name"`
	Name       FlexString `json:"name"`
	Status     FlexString `json:"status"`
	Round      FlexInt    `json:"round"`
	SelectedBy FlexString `json:"selected_by"`
}

// MapName prefers guid, then game_map_id, class_name and name.
func (e TicketEntity) MapName() string {
	return firstNonEmpty(e.GUID, e.GameMapID, e.ClassName, e.Name)
}

func (e TicketEntity) StatusLower() string { return strings.ToLower(e.Status.String()) }

type ChampionshipList struct {
	Items []Championship `json:"items"`
}

type Championship struct {
	ChampionshipIDRaw FlexString `json:"championship_id"`
	IDRaw             FlexString `json:"id"`
	Name              FlexString `json:"name"`
	Game              FlexString `json:"game"`
	GameID            FlexString `json:"game_id"`
	Status            FlexString `json:"status"`
}

func (c Championship) ChampionshipID() string { return firstNonEmpty(c.ChampionshipIDRaw, c.IDRaw) }

func (c Championship) GameTag() string { return strings.ToLower(firstNonEmpty(c.Game, c.GameID)) }
