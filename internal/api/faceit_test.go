package api

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/config"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newTestFaceit(t *testing.T, apiKey string, handler fasthttp.RequestHandler) *FaceitClient {
	t.Helper()
	cfg := &config.Config{
		FaceitAPIKey: apiKey,
		OpenBaseURL:  "http://faceit.test/data/v4/",
		DemocracyURL: "http://faceit.test/democracy/v1",
	}
	limiter := NewAdaptiveLimiter(config.LimiterConfig{}).WithSleep(noSleep)
	rc := NewRateLimitedClientWith(newInmemoryHTTP(t, handler), limiter, zerolog.Nop(), ClientOptions{Timeout: 2 * time.Second}).
		WithSleep(noSleep)
	return NewFaceitClient(cfg, rc, zerolog.Nop())
}

// pagedItems serves ids[offset:offset+limit] as a championship match page.
func pagedItems(ctx *fasthttp.RequestCtx, ids []string) {
	offset, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("offset")))
	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	end := min(offset+limit, len(ids))
	var parts []string
	for i := offset; i < end; i++ {
		parts = append(parts, fmt.Sprintf(`{"match_id":%q,"status":"FINISHED"}`, ids[i]))
	}
	ctx.SetBodyString(`{"items":[` + strings.Join(parts, ",") + `]}`)
}

func TestListChampionshipMatchesPaginates(t *testing.T) {
	up := &fakeUpstream{}
	ids := []string{"a", "b", "c", "d", "e"}
	c := newTestFaceit(t, "key", func(ctx *fasthttp.RequestCtx) {
		up.record(ctx)
		pagedItems(ctx, ids)
	}).WithPageSize(2)

	items, err := c.ListChampionshipMatches(context.Background(), "champ-1", MatchTypePast)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "e", items[4].MatchID())
	assert.Equal(t, "finished", items[0].StatusLower())

	reqs := up.seen()
	require.Len(t, reqs, 3)
	assert.Equal(t, "/data/v4/championships/champ-1/matches", reqs[0].path)
	assert.Equal(t, "Bearer key", reqs[0].auth)
	assert.Contains(t, reqs[2].query, "offset=4")
	assert.Contains(t, reqs[2].query, "type=past")
}

func TestListChampionshipMatchesAllTypes(t *testing.T) {
	byType := map[string][]string{
		"past":     {"p1", "p2"},
		"ongoing":  nil,
		"upcoming": {"u1"},
	}
	c := newTestFaceit(t, "", func(ctx *fasthttp.RequestCtx) {
		pagedItems(ctx, byType[string(ctx.QueryArgs().Peek("type"))])
	})

	items, err := c.ListChampionshipMatches(context.Background(), "champ-1", MatchTypeAll)
	require.NoError(t, err)
	var got []string
	for _, it := range items {
		got = append(got, it.MatchID())
	}
	assert.Equal(t, []string{"p1", "p2", "u1"}, got)
}

func TestListChampionshipMatchesNotFoundIsEmpty(t *testing.T) {
	c := newTestFaceit(t, "key", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	items, err := c.ListChampionshipMatches(context.Background(), "missing", MatchTypePast)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListChampionshipMatchesHardFailure(t *testing.T) {
	c := newTestFaceit(t, "key", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	})

	_, err := c.ListChampionshipMatches(context.Background(), "champ-1", MatchTypePast)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestDemocracyHistorySendsNoCredentials(t *testing.T) {
	up := &fakeUpstream{}
	c := newTestFaceit(t, "key", func(ctx *fasthttp.RequestCtx) {
		up.record(ctx)
		ctx.SetBodyString(`{"payload":{"tickets":[{"entity_type":"map","entities":[{"guid":"de_mirage","status":"pick","round":1}]}]}}`)
	})

	h, err := c.GetDemocracyHistory(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.MapTickets(), 1)

	reqs := up.seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/democracy/v1/match/m1/history", reqs[0].path)
	assert.Empty(t, reqs[0].auth)
}

func TestMatchDetailsAndStats(t *testing.T) {
	c := newTestFaceit(t, "key", func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/data/v4/matches/m1":
			ctx.SetBodyString(`{"match_id":"m1","status":"FINISHED","best_of":3,"teams":{"faction1":{"faction_id":"t1","name":"One"},"faction2":{"faction_id":"t2","name":"Two"}}}`)
		case "/data/v4/matches/m1/stats":
			ctx.SetBodyString(`{"rounds":[{"round_stats":{"Map":"de_inferno","Score":"13 / 7"},"teams":[]}]}`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})

	d, err := c.GetMatchDetails(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "t1", d.Teams.Faction1.FactionID.String())
	assert.EqualValues(t, 3, d.BestOf.Value)

	s, err := c.GetMatchStats(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, s.Rounds(), 1)
	assert.Equal(t, "de_inferno", s.Rounds()[0].Map())

	missing, err := c.GetMatchStats(context.Background(), "m2")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Empty(t, missing.Rounds())
}

func TestListOrganizerChampionships(t *testing.T) {
	c := newTestFaceit(t, "key", func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"items":[{"championship_id":"c1","name":"1. Divisioona S11","game":"cs2"},{"id":"c2","name":"Cup"}]}`)
	})

	champs, err := c.ListOrganizerChampionships(context.Background(), "org")
	require.NoError(t, err)
	require.Len(t, champs, 2)
	assert.Equal(t, "c1", champs[0].ChampionshipID())
	assert.Equal(t, "c2", champs[1].ChampionshipID())
	assert.Equal(t, "cs2", champs[0].GameTag())
}
