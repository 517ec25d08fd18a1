package database

import (
	"pappaliiga-stats/internal/config"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := New(&config.Config{DBPath: path}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)

	caps, err := NewCapabilities(db, zerolog.Nop())
	require.NoError(t, err)
	assert.EqualValues(t, 1, caps.Version)
	for _, table := range introspectedTables {
		assert.True(t, caps.HasTable(table), table)
	}
	assert.True(t, caps.HasColumn("player_stats", "cl_1v2_wins"))
	assert.False(t, caps.HasColumn("player_stats", "rating"))
}

func TestNewIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	cfg := &config.Config{DBPath: path}

	first, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	var tables int
	require.NoError(t, second.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'matches'`))
	assert.Equal(t, 1, tables)
}

func TestCapabilitiesFromColumns(t *testing.T) {
	caps := NewCapabilitiesFromColumns(3, map[string][]string{
		"player_stats": {"match_id", "kills", "adr"},
		"teams":        nil,
	})

	assert.True(t, caps.HasTable("player_stats"))
	assert.False(t, caps.HasTable("teams"))
	assert.Equal(t, []string{"adr", "kills"}, caps.FilterColumns("player_stats", []string{"adr", "damage", "kills"}))

	var none *Capabilities
	assert.False(t, none.HasTable("player_stats"))
	assert.Empty(t, none.FilterColumns("player_stats", []string{"kills"}))
}
