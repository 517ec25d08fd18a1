package repository

import (
	"context"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/database"
	"pappaliiga-stats/internal/domain"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) (*sqlx.DB, *Repositories) {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "repo.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	caps, err := database.NewCapabilities(db, zerolog.Nop())
	require.NoError(t, err)
	return db, NewRepositories(db, caps, zerolog.Nop())
}

func str(s string) *string { return &s }

func i64(v int64) *int64 { return &v }

func seedChampionship(t *testing.T, repos *Repositories, id string) {
	t.Helper()
	_, err := repos.Championships.Upsert(context.Background(), domain.Championship{
		ChampionshipID: id, Season: 11, DivisionNum: 1, Name: "1. Divisioona S11", Slug: "div1-s11", Game: "cs2",
	})
	require.NoError(t, err)
}

func TestChampionshipUpsertKeepsCanonicalID(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	first, err := repos.Championships.Upsert(ctx, domain.Championship{ChampionshipID: "c-old", Season: 11, DivisionNum: 2})
	require.NoError(t, err)
	assert.Equal(t, "c-old", first.ChampionshipID)
	assert.Empty(t, first.Name)

	merged, err := repos.Championships.Upsert(ctx, domain.Championship{
		ChampionshipID: "c-new", Season: 11, DivisionNum: 2, Name: "2. Divisioona S11", Slug: "div2-s11", Game: "cs2",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-old", merged.ChampionshipID)
	assert.Equal(t, "2. Divisioona S11", merged.Name)
	assert.Equal(t, "div2-s11", merged.Slug)

	again, err := repos.Championships.Upsert(ctx, domain.Championship{
		ChampionshipID: "c-old", Season: 11, DivisionNum: 2, Name: "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, "2. Divisioona S11", again.Name, "stored names are never overwritten")

	missing, err := repos.Championships.Get(ctx, "c-new")
	require.NoError(t, err)
	assert.Nil(t, missing)

	playoffs, err := repos.Championships.Upsert(ctx, domain.Championship{ChampionshipID: "c-po", Season: 11, DivisionNum: 2, IsPlayoffs: true})
	require.NoError(t, err)
	assert.Equal(t, "c-po", playoffs.ChampionshipID)
	assert.True(t, playoffs.IsPlayoffs)
}

func TestUpsertMatchKeepsStoredValues(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	seedChampionship(t, repos, "c1")

	require.NoError(t, repos.Matches.UpsertMatch(ctx, domain.Match{
		MatchID: "m1", ChampionshipID: "c1", Status: str("scheduled"), BestOf: i64(3),
		ScheduledAt: i64(100), Team1ID: str("t1"), Team2ID: str("t2"), LastSeenAt: 10,
	}))
	require.NoError(t, repos.Matches.UpsertMatch(ctx, domain.Match{
		MatchID: "m1", ChampionshipID: "c1", Status: str("finished"), FinishedAt: i64(200),
		WinnerTeamID: str("t2"), LastSeenAt: 20,
	}))

	m, err := repos.Matches.GetMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "finished", *m.Status)
	assert.EqualValues(t, 3, *m.BestOf)
	assert.EqualValues(t, 100, *m.ScheduledAt)
	assert.EqualValues(t, 200, *m.FinishedAt)
	assert.Equal(t, "t1", *m.Team1ID)
	assert.Equal(t, "t2", *m.WinnerTeamID)

	seen, ok, err := repos.Matches.LastSeen(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 20, seen)

	_, ok, err = repos.Matches.LastSeen(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	none, err := repos.Matches.GetMatch(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMatchRequiresChampionship(t *testing.T) {
	_, repos := newTestRepos(t)
	err := repos.Matches.UpsertMatch(context.Background(), domain.Match{MatchID: "m1", ChampionshipID: "ghost"})
	require.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	snap, err := repos.Matches.Snapshot(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchSnapshot{}, snap)

	seedChampionship(t, repos, "c1")
	require.NoError(t, repos.Matches.UpsertMatch(ctx, domain.Match{
		MatchID: "m1", ChampionshipID: "c1", Status: str("finished"), Team1ID: str("t1"),
	}))
	require.NoError(t, repos.Matches.UpsertMaps(ctx, []domain.MapRow{
		{MatchID: "m1", RoundIndex: 1, MapName: str(constants.ForfeitMapName), ScoreTeam1: i64(13), ScoreTeam2: i64(0)},
	}))

	snap, err = repos.Matches.Snapshot(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, snap.Exists)
	assert.Equal(t, "finished", *snap.Status)
	assert.Equal(t, "t1", *snap.Team1ID)
	assert.Nil(t, snap.Team2ID)
	assert.True(t, snap.HasMaps)
	assert.True(t, snap.HasForfeitMap)
	assert.False(t, snap.HasPlayerStats)
}

func TestUpsertMapsKeepsKnownName(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	seedChampionship(t, repos, "c1")
	require.NoError(t, repos.Matches.UpsertMatch(ctx, domain.Match{MatchID: "m1", ChampionshipID: "c1"}))

	require.NoError(t, repos.Matches.UpsertMaps(ctx, []domain.MapRow{
		{MatchID: "m1", RoundIndex: 1, MapName: str("de_mirage"), ScoreTeam1: i64(13), ScoreTeam2: i64(7)},
	}))
	require.NoError(t, repos.Matches.UpsertMaps(ctx, []domain.MapRow{
		{MatchID: "m1", RoundIndex: 1, ScoreTeam1: i64(13), ScoreTeam2: i64(9), WinnerTeamID: str("t1")},
	}))

	rows, err := repos.Matches.ListMaps(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "de_mirage", *rows[0].MapName)
	assert.EqualValues(t, 9, *rows[0].ScoreTeam2)
	assert.Equal(t, "t1", *rows[0].WinnerTeamID)
}

func TestReplaceVotes(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	seedChampionship(t, repos, "c1")
	require.NoError(t, repos.Matches.UpsertMatch(ctx, domain.Match{MatchID: "m1", ChampionshipID: "c1"}))

	require.NoError(t, repos.Matches.ReplaceVotes(ctx, "m1", []domain.MapVote{
		{MapName: str("de_nuke"), Status: "drop"},
		{MapName: str("de_mirage"), Status: "pick"},
		{MapName: str("de_train"), Status: "drop"},
	}))
	require.NoError(t, repos.Matches.ReplaceVotes(ctx, "m1", []domain.MapVote{
		{MapName: str("de_inferno"), Status: "pick", RoundNum: i64(1)},
	}))

	votes, err := repos.Matches.ListVotes(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "m1", votes[0].MatchID)
	assert.Equal(t, 1, votes[0].Seq)
	assert.Equal(t, "de_inferno", *votes[0].MapName)

	_, err = repos.Matches.CountRows(ctx, "sqlite_master", "m1")
	require.Error(t, err)
}

func TestTeamAndPlayerMerge(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Teams.Upsert(ctx, domain.Team{TeamID: "t1", Name: "One", UpdatedAt: 1}))
	team, err := repos.Teams.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultTeamAvatar, team.Avatar)

	require.NoError(t, repos.Teams.Upsert(ctx, domain.Team{TeamID: "t1", Avatar: "a.png", UpdatedAt: 2}))
	require.NoError(t, repos.Teams.Upsert(ctx, domain.Team{TeamID: "t1", UpdatedAt: 3}))
	team, err = repos.Teams.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "One", team.Name)
	assert.Equal(t, "a.png", team.Avatar)
	assert.EqualValues(t, 2, team.UpdatedAt, "unchanged rows are not rewritten")

	require.NoError(t, repos.Teams.Upsert(ctx, domain.Team{TeamID: "t1", Name: "One Esports", UpdatedAt: 4}))
	team, err = repos.Teams.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "One Esports", team.Name)

	require.NoError(t, repos.Teams.Upsert(ctx, domain.Team{}))

	require.NoError(t, repos.Players.UpsertBatch(ctx, []domain.Player{
		{PlayerID: "p1", Nickname: "alpha", UpdatedAt: 1},
		{PlayerID: "p1", UpdatedAt: 2},
		{PlayerID: ""},
	}))
	p, err := repos.Players.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "alpha", p.Nickname)

	gone, err := repos.Players.Get(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPlayerStatsUpsertIfChanged(t *testing.T) {
	db, repos := newTestRepos(t)
	ctx := context.Background()
	seedChampionship(t, repos, "c1")
	require.NoError(t, repos.Matches.UpsertMatch(ctx, domain.Match{MatchID: "m1", ChampionshipID: "c1"}))

	row := domain.PlayerStat{MatchID: "m1", RoundIndex: 1, PlayerID: "p1", TeamID: "t1", Kills: 20, ADR: 90.5}
	require.NoError(t, repos.Stats.UpsertPlayerStats(ctx, []domain.PlayerStat{row}))
	row.Kills = 21
	require.NoError(t, repos.Stats.UpsertPlayerStats(ctx, []domain.PlayerStat{row}))

	stats, err := repos.Stats.ListPlayerStats(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 21, stats[0].Kills)

	var changes int
	require.NoError(t, db.Get(&changes, `SELECT total_changes()`))
	before := changes
	require.NoError(t, repos.Stats.UpsertPlayerStats(ctx, []domain.PlayerStat{row}))
	require.NoError(t, db.Get(&changes, `SELECT total_changes()`))
	assert.Equal(t, before, changes, "identical rows are not rewritten")

	require.NoError(t, repos.Stats.UpsertTeamStats(ctx, []domain.TeamStat{
		{MatchID: "m1", RoundIndex: 1, TeamID: "t1", TeamName: str("One"), FinalScore: i64(13)},
	}))
	require.NoError(t, repos.Stats.UpsertTeamStats(ctx, []domain.TeamStat{
		{MatchID: "m1", RoundIndex: 1, TeamID: "t1", TeamWin: i64(1)},
	}))
	teams, err := repos.Stats.ListTeamStats(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "One", *teams[0].TeamName)
	assert.EqualValues(t, 13, *teams[0].FinalScore)
	assert.EqualValues(t, 1, *teams[0].TeamWin)
}

func TestPlayerStatsColumnsFollowCapabilities(t *testing.T) {
	caps := database.NewCapabilitiesFromColumns(1, map[string][]string{
		"player_stats": {"match_id", "round_index", "player_id", "team_id", "kills", "adr"},
	})
	r := NewStatsRepository(nil, caps, zerolog.Nop())

	assert.Contains(t, r.upsertPlayerStats, "INSERT INTO player_stats (match_id, round_index, player_id, team_id, kills, adr)")
	assert.NotContains(t, r.upsertPlayerStats, "damage")

	full := NewStatsRepository(nil, database.NewCapabilitiesFromColumns(1, nil), zerolog.Nop())
	assert.Contains(t, full.upsertPlayerStats, "pistol_kills")
}

func TestBuildUpsertIfChanged(t *testing.T) {
	q := buildUpsertIfChanged("t", []string{"a"}, []string{"b", "c"})
	assert.Equal(t,
		"INSERT INTO t (a, b, c) VALUES (:a, :b, :c) ON CONFLICT(a) DO UPDATE SET b = excluded.b, c = excluded.c "+
			"WHERE t.b IS NOT excluded.b OR t.c IS NOT excluded.c", q)

	keysOnly := buildUpsertIfChanged("t", []string{"a"}, nil)
	assert.True(t, strings.HasSuffix(keysOnly, "ON CONFLICT(a) DO NOTHING"))
}

func TestCatalogAndSeasonPool(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Catalog.Upsert(ctx, domain.MapCatalogEntry{MapID: "de_nuke", PrettyName: "Nuke", ImageSm: "s.png", Game: "cs2"}, 1))
	require.NoError(t, repos.Catalog.Upsert(ctx, domain.MapCatalogEntry{MapID: "de_nuke", ImageLg: "l.png", Game: "csgo"}, 2))

	entry, err := repos.Catalog.Get(ctx, "de_nuke")
	require.NoError(t, err)
	assert.Equal(t, domain.MapCatalogEntry{MapID: "de_nuke", PrettyName: "Nuke", ImageSm: "s.png", ImageLg: "l.png", Game: "cs2"}, *entry)

	require.NoError(t, repos.Catalog.AddToSeasonPool(ctx, 11, "de_nuke"))
	require.NoError(t, repos.Catalog.AddToSeasonPool(ctx, 11, "de_nuke"))
	pool, err := repos.Catalog.SeasonPool(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, []string{"de_nuke"}, pool)
}

func TestPassSavepoints(t *testing.T) {
	db, repos := newTestRepos(t)
	ctx := context.Background()
	seedChampionship(t, repos, "c1")

	pass, err := BeginPass(ctx, db, zerolog.Nop())
	require.NoError(t, err)
	defer pass.Rollback()
	txRepos := repos.WithTx(pass.Tx())

	require.NoError(t, pass.Savepoint(ctx, "match_1"))
	require.NoError(t, txRepos.Matches.UpsertMatch(ctx, domain.Match{MatchID: "kept", ChampionshipID: "c1"}))
	require.NoError(t, pass.Release(ctx, "match_1"))

	require.NoError(t, pass.Savepoint(ctx, "match_2"))
	require.NoError(t, txRepos.Matches.UpsertMatch(ctx, domain.Match{MatchID: "dropped", ChampionshipID: "c1"}))
	require.NoError(t, pass.RollbackTo(ctx, "match_2"))

	require.Error(t, pass.Savepoint(ctx, "bad name; DROP"))
	require.NoError(t, pass.Commit())
	pass.Rollback()

	kept, err := repos.Matches.GetMatch(ctx, "kept")
	require.NoError(t, err)
	assert.NotNil(t, kept)
	dropped, err := repos.Matches.GetMatch(ctx, "dropped")
	require.NoError(t, err)
	assert.Nil(t, dropped)
}

func TestPassCommitsAfterCancel(t *testing.T) {
	db, repos := newTestRepos(t)
	seedChampionship(t, repos, "c1")

	ctx, cancel := context.WithCancel(context.Background())
	pass, err := BeginPass(ctx, db, zerolog.Nop())
	require.NoError(t, err)
	cancel()

	wctx := context.WithoutCancel(ctx)
	require.NoError(t, repos.WithTx(pass.Tx()).Matches.UpsertMatch(wctx, domain.Match{MatchID: "m1", ChampionshipID: "c1"}))
	require.NoError(t, pass.Commit())

	m, err := repos.Matches.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSyncRuns(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	id, err := repos.SyncRuns.Insert(ctx, domain.SyncRun{RunID: "r1", ChampionshipID: "c1", StartedAt: 1, FinishedAt: 2, Listed: 3})
	require.NoError(t, err)
	assert.Len(t, id, 21)

	_, err = repos.SyncRuns.Insert(ctx, domain.SyncRun{ID: "fixed", RunID: "r2", ChampionshipID: "c1", StartedAt: 5, FinishedAt: 6, BudgetExceeded: true})
	require.NoError(t, err)

	latest, err := repos.SyncRuns.Latest(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "fixed", latest.ID)
	assert.True(t, latest.BudgetExceeded)

	none, err := repos.SyncRuns.Latest(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, none)
}
