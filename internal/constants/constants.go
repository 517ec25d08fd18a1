package constants

import "time"

const (
	OpenBaseURL      = "https://open.faceit.com/data/v4"
	DemocracyBaseURL = "https://www.faceit.com/api/democracy/v1"
	UserAgent        = "pappaliiga-stats/1.0"
)

const (
	ExternalAPITimeout = 20 * time.Second
	HTTPMaxAttempts    = 4
	HTTPBackoffBase    = 800 * time.Millisecond
	MaxRetryAfter      = 2 * time.Minute
	ErrorBodySnippet   = 200
	PageSize           = 100
)

const (
	LimiterBaseDelay    = 100 * time.Millisecond
	LimiterMaxDelay     = 1500 * time.Millisecond
	LimiterGrowth       = 1.75
	LimiterRecovery     = 0.85
	LimiterRecoverAfter = 3
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 10 * time.Second
	ProgressEvery   = 25
)

// veto heuristics
const (
	VoteDeciderThreshold = 7
	VoteMinPickLike      = 3
)

const (
	ForfeitMapName      = "forfeit"
	ForfeitRoundsWon    = 13
	DefaultGame         = "cs2"
	DefaultTeamAvatar   = "https://pappaliiga.fi/app/themes/pappaliiga/images/src/pappaliiga-logo-white-bg.png"
	StatusNotFound      = "not_found"
	DivisionIDStart     = 101
	DivisionSlugIDChars = 6
)

// aggregate forfeit scores above this are treated as round scores, not map counts
const MaxForfeitMaps = 5
