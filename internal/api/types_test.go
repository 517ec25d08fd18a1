package api

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexValuesDecode(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexInt    `json:"d"`
		E FlexInt    `json:"e"`
		F FlexInt    `json:"f"`
		G FlexInt    `json:"g"`
	}
	err := sonic.Unmarshal([]byte(`{"a":"x ","b":42,"c":{"nested":1},"d":"7","e":12.9,"f":null,"g":"1,5"}`), &v)
	require.NoError(t, err)

	assert.Equal(t, "x", v.A.String())
	assert.Equal(t, "42", v.B.String())
	assert.Empty(t, v.C.String())
	assert.Equal(t, FlexInt{Value: 7, Valid: true}, v.D)
	assert.Equal(t, FlexInt{Value: 12, Valid: true}, v.E)
	assert.False(t, v.F.Valid)
	assert.Nil(t, v.F.Ptr())
	assert.Equal(t, FlexInt{Value: 1, Valid: true}, v.G)
}

func TestGameRefAcceptsObject(t *testing.T) {
	var a, b struct {
		Game GameRef `json:"game"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(`{"game":"cs2"}`), &a))
	require.NoError(t, sonic.Unmarshal([]byte(`{"game":{"name":"cs2"}}`), &b))
	assert.Equal(t, GameRef("cs2"), a.Game)
	assert.Equal(t, GameRef("cs2"), b.Game)
}

func TestStatMapAliases(t *testing.T) {
	m := StatMap{"HS %": "48", "K/D Ratio": "1,25", "Kills": "x"}
	assert.InDelta(t, 48.0, m.FloatOr("Headshots %", "HS %"), 0.001)
	assert.InDelta(t, 1.25, m.FloatOr("K/D Ratio"), 0.001)
	assert.Zero(t, m.IntOr("Kills"))
	assert.False(t, m.Int("Deaths").Valid)
}

func TestMatchStatsRoundsFallback(t *testing.T) {
	var s MatchStats
	require.NoError(t, sonic.Unmarshal([]byte(`{"roundsStats":[{"map":"de_nuke","round_stats":{"Score":"16:14"}}]}`), &s))
	require.Len(t, s.Rounds(), 1)
	assert.Equal(t, "de_nuke", s.Rounds()[0].Map())
	assert.Equal(t, "16:14", s.Rounds()[0].Score())
}

func TestStatsTeamAndPlayerFallbacks(t *testing.T) {
	var team StatsTeam
	require.NoError(t, sonic.Unmarshal([]byte(`{
		"faction_id":"t9","team":"Nine",
		"team_stats":{"Team":"Nine Esports"},
		"players":[{"id":"p1","name":"nick","stats":{"Kills":"20"}}]
	}`), &team))

	assert.Equal(t, "t9", team.TeamID())
	assert.Equal(t, "Nine", team.Name())
	assert.Equal(t, "Nine Esports", team.DisplayName())
	require.Len(t, team.Players, 1)
	assert.Equal(t, "p1", team.Players[0].PlayerID())
	assert.Equal(t, "nick", team.Players[0].Nickname())
	assert.EqualValues(t, 20, team.Players[0].Stats().IntOr("Kills"))
}

func TestTicketEntityMapNamePriority(t *testing.T) {
	e := TicketEntity{GameMapID: "map_id", ClassName: "de_anubis", Name: "Anubis"}
	assert.Equal(t, "map_id", e.MapName())
	e.GUID = "de_anubis_guid"
	assert.Equal(t, "de_anubis_guid", e.MapName())

	v := VotingEntity{GUID: "g", GameMapID: "id", ClassName: "de_vertigo"}
	assert.Equal(t, "de_vertigo", v.CatalogID())
}

func TestDemocracyHistoryMapTickets(t *testing.T) {
	var nilHistory *DemocracyHistory
	assert.Empty(t, nilHistory.MapTickets())

	h := &DemocracyHistory{Payload: &DemocracyPayload{Tickets: []Ticket{
		{EntityType: "location"},
		{EntityType: "MAP"},
	}}}
	assert.Len(t, h.MapTickets(), 1)
}

func TestMatchWinnerRef(t *testing.T) {
	m := Match{WinnerTeamID: "t2"}
	assert.Equal(t, "t2", m.WinnerRef())
	m.Results.Winner = "faction1"
	assert.Equal(t, "faction1", m.WinnerRef())
}
