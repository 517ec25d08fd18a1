package config

import (
	"fmt"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/logger"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	FaceitAPIKey  string        `env:"FACEIT_API_KEY"`
	DBPath        string        `env:"DB_PATH" envDefault:"pappaliiga.db"`
	DivisionsPath string        `env:"DIVISIONS_PATH" envDefault:"divisions.json"`
	CurrentSeason int           `env:"CURRENT_SEASON" envDefault:"11"`
	OrganizerID   string        `env:"ORGANIZER_ID" envDefault:"1bfc69fa-5a21-4ed9-9ef3-37edbd7210d8"`
	OpenBaseURL   string        `env:"OPEN_BASE_URL"`
	DemocracyURL  string        `env:"DEMOCRACY_BASE_URL"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	PassBudget    time.Duration `env:"SYNC_PASS_BUDGET" envDefault:"0s"`
	ProgressEvery int           `env:"SYNC_PROGRESS_EVERY"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT"`
	HTTPAttempts  int           `env:"HTTP_MAX_ATTEMPTS"`
	HTTPBackoff   time.Duration `env:"HTTP_BACKOFF_BASE"`
	Limiter       LimiterConfig `envPrefix:"LIMITER_"`
}

type LimiterConfig struct {
	BaseDelay    time.Duration `env:"BASE_DELAY"`
	MaxDelay     time.Duration `env:"MAX_DELAY"`
	Growth       float64       `env:"GROWTH"`
	Recovery     float64       `env:"RECOVERY"`
	RecoverAfter int           `env:"RECOVER_AFTER"`
}

func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	lvl := logger.ApplyLevel(cfg.LogLevel)

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("divisions_path", cfg.DivisionsPath).
		Int("current_season", cfg.CurrentSeason).
		Bool("api_key", cfg.FaceitAPIKey != "").
		Str("log_level", lvl.String()).
		Dur("pass_budget", cfg.PassBudget).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OpenBaseURL == "" {
		c.OpenBaseURL = constants.OpenBaseURL
	}
	if c.DemocracyURL == "" {
		c.DemocracyURL = constants.DemocracyBaseURL
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = constants.ProgressEvery
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = constants.ExternalAPITimeout
	}
	if c.HTTPAttempts <= 0 {
		c.HTTPAttempts = constants.HTTPMaxAttempts
	}
	if c.HTTPBackoff <= 0 {
		c.HTTPBackoff = constants.HTTPBackoffBase
	}
	c.Limiter = c.Limiter.WithDefaults()
}

// WithDefaults fills every unset field from the package constants.
func (l LimiterConfig) WithDefaults() LimiterConfig {
	if l.BaseDelay <= 0 {
		l.BaseDelay = constants.LimiterBaseDelay
	}
	if l.MaxDelay <= 0 {
		l.MaxDelay = constants.LimiterMaxDelay
	}
	if l.Growth <= 0 {
		l.Growth = constants.LimiterGrowth
	}
	if l.Recovery <= 0 {
		l.Recovery = constants.LimiterRecovery
	}
	if l.RecoverAfter <= 0 {
		l.RecoverAfter = constants.LimiterRecoverAfter
	}
	return l
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	if c.Limiter.MaxDelay < c.Limiter.BaseDelay {
		return fmt.Errorf("LIMITER_MAX_DELAY (%s) must be >= LIMITER_BASE_DELAY (%s)", c.Limiter.MaxDelay, c.Limiter.BaseDelay)
	}
	if c.Limiter.Growth < 1 {
		return fmt.Errorf("LIMITER_GROWTH must be >= 1, got %v", c.Limiter.Growth)
	}
	if c.Limiter.Recovery > 1 {
		return fmt.Errorf("LIMITER_RECOVERY must be <= 1, got %v", c.Limiter.Recovery)
	}
	if c.PassBudget < 0 {
		return fmt.Errorf("SYNC_PASS_BUDGET must not be negative")
	}
	return nil
}

var Module = fx.Provide(Load)
