package service

import (
	"context"
	"pappaliiga-stats/internal/api"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/database"
	"pappaliiga-stats/internal/repository"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListChampionshipMatches(ctx context.Context, championshipID string, matchType api.MatchType) ([]api.Match, error) {
	args := m.Called(ctx, championshipID, matchType)
	items, _ := args.Get(0).([]api.Match)
	return items, args.Error(1)
}

func (m *mockSource) GetMatchDetails(ctx context.Context, matchID string) (*api.Match, error) {
	args := m.Called(ctx, matchID)
	d, _ := args.Get(0).(*api.Match)
	return d, args.Error(1)
}

func (m *mockSource) GetMatchStats(ctx context.Context, matchID string) (*api.MatchStats, error) {
	args := m.Called(ctx, matchID)
	s, _ := args.Get(0).(*api.MatchStats)
	return s, args.Error(1)
}

func (m *mockSource) GetDemocracyHistory(ctx context.Context, matchID string) (*api.DemocracyHistory, error) {
	args := m.Called(ctx, matchID)
	h, _ := args.Get(0).(*api.DemocracyHistory)
	return h, args.Error(1)
}

func (m *mockSource) ListOrganizerChampionships(ctx context.Context, organizerID string) ([]api.Championship, error) {
	args := m.Called(ctx, organizerID)
	c, _ := args.Get(0).([]api.Championship)
	return c, args.Error(1)
}

func decode[T any](t *testing.T, raw string) *T {
	t.Helper()
	var v T
	require.NoError(t, sonic.Unmarshal([]byte(raw), &v))
	return &v
}

func newTestStore(t *testing.T) (*sqlx.DB, *repository.Repositories) {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "sync.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	caps, err := database.NewCapabilities(db, zerolog.Nop())
	require.NoError(t, err)
	return db, repository.NewRepositories(db, caps, zerolog.Nop())
}
