package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

var introspectedTables = []string{
	"championships", "teams", "players", "matches", "maps",
	"map_votes", "player_stats", "team_stats", "maps_catalog",
	"map_pool_seasons", "sync_runs",
}

// Capabilities describes the schema of an opened store. It is computed once
// after migrations and passed to anything that writes optional columns.
type Capabilities struct {
	Version int64
	columns map[string]map[string]struct{}
}

func NewCapabilities(db *sqlx.DB, logger zerolog.Logger) (*Capabilities, error) {
	version, err := goose.GetDBVersion(db.DB)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	caps := &Capabilities{
		Version: version,
		columns: make(map[string]map[string]struct{}, len(introspectedTables)),
	}

	for _, table := range introspectedTables {
		var names []string
		if err := db.Select(&names, "SELECT name FROM pragma_table_info(?)", table); err != nil {
			return nil, fmt.Errorf("introspect %s: %w", table, err)
		}
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		caps.columns[table] = set
	}

	logger.Debug().Int64("schema_version", version).Int("tables", len(caps.columns)).Msg("schema capabilities computed")
	return caps, nil
}

// NewCapabilitiesFromColumns builds capabilities without a store.
func NewCapabilitiesFromColumns(version int64, tables map[string][]string) *Capabilities {
	caps := &Capabilities{Version: version, columns: make(map[string]map[string]struct{}, len(tables))}
	for table, cols := range tables {
		set := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			set[c] = struct{}{}
		}
		caps.columns[table] = set
	}
	return caps
}

func (c *Capabilities) HasTable(table string) bool {
	if c == nil {
		return false
	}
	cols, ok := c.columns[table]
	return ok && len(cols) > 0
}

func (c *Capabilities) HasColumn(table, column string) bool {
	if c == nil {
		return false
	}
	_, ok := c.columns[table][column]
	return ok
}

// FilterColumns keeps the wanted columns that exist in table, in order.
func (c *Capabilities) FilterColumns(table string, wanted []string) []string {
	out := make([]string, 0, len(wanted))
	for _, col := range wanted {
		if c.HasColumn(table, col) {
			out = append(out, col)
		}
	}
	return out
}
