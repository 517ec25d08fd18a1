package repository

import (
	"pappaliiga-stats/internal/database"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Repositories groups every repository so a pass can rebind them to its transaction at once.
type Repositories struct {
	Championships *ChampionshipRepository
	Teams         *TeamRepository
	Players       *PlayerRepository
	Matches       *MatchRepository
	Stats         *StatsRepository
	Catalog       *MapCatalogRepository
	SyncRuns      *SyncRunRepository
}

func NewRepositories(db *sqlx.DB, caps *database.Capabilities, logger zerolog.Logger) *Repositories {
	return &Repositories{
		Championships: NewChampionshipRepository(db, logger),
		Teams:         NewTeamRepository(db, logger),
		Players:       NewPlayerRepository(db, logger),
		Matches:       NewMatchRepository(db, logger),
		Stats:         NewStatsRepository(db, caps, logger),
		Catalog:       NewMapCatalogRepository(db, logger),
		SyncRuns:      NewSyncRunRepository(db, logger),
	}
}

func (r *Repositories) WithTx(tx *sqlx.Tx) *Repositories {
	return &Repositories{
		Championships: r.Championships.WithTx(tx),
		Teams:         r.Teams.WithTx(tx),
		Players:       r.Players.WithTx(tx),
		Matches:       r.Matches.WithTx(tx),
		Stats:         r.Stats.WithTx(tx),
		Catalog:       r.Catalog.WithTx(tx),
		SyncRuns:      r.SyncRuns.WithTx(tx),
	}
}
