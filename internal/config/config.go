// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/ladder/internal/domain/scoring"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Season is applied to matches that do not name one.
	Season string `koanf:"season"`

	// Store selects the ranking record backend: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseURL is the PostgreSQL DSN used when Store is postgres.
	DatabaseURL string `koanf:"database_url"`

	// MigrationsDir holds the golang-migrate SQL files.
	MigrationsDir string `koanf:"migrations_dir"`

	// AutoMigrate applies pending migrations at startup.
	AutoMigrate bool `koanf:"auto_migrate"`

	// QueueSize bounds the in-memory match queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of match workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the in-memory applied-match cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxPageSize caps GET /leaderboard?page_size.
	MaxPageSize int `koanf:"max_page_size"`

	// MaxLeaderboardLimit caps GET /leaderboard/top?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	WinPoints     int `koanf:"win_points"`
	LossPoints    int `koanf:"loss_points"`
	MVPBonus      int `koanf:"mvp_bonus"`
	LoserMVPBonus int `koanf:"loser_mvp_bonus"`

	// StrictBonus rejects negative admin bonuses.
	StrictBonus bool `koanf:"strict_bonus"`

	// ReapplyFinalized counts a re-saved match again instead of rejecting it.
	ReapplyFinalized bool `koanf:"reapply_finalized"`

	// Fanout bounds concurrent player updates within one match.
	Fanout int `koanf:"fanout"`

	// PlayersFile is an optional CSV roster (player_id,display_name).
	PlayersFile string `koanf:"players_file"`

	// Players maps player ids to display names.
	Players map[string]string `koanf:"players"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Season:              time.Now().UTC().Format("2006"),
		Store:               StoreMemory,
		MigrationsDir:       "migrations",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		MaxPageSize:         100,
		MaxLeaderboardLimit: 1000,
		WinPoints:           scoring.DefaultWinPoints,
		LossPoints:          scoring.DefaultLossPoints,
		MVPBonus:            scoring.DefaultMVPBonus,
		LoserMVPBonus:       scoring.DefaultLoserMVPBonus,
		Fanout:              8,
	}
}

// Rules returns the point table described by the config.
func (c *Config) Rules() scoring.Rules {
	return scoring.NewRules(
		scoring.WithWinPoints(c.WinPoints),
		scoring.WithLossPoints(c.LossPoints),
		scoring.WithMVPBonus(c.MVPBonus),
		scoring.WithLoserMVPBonus(c.LoserMVPBonus),
	)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StorePostgres, c.Store)
	case c.Store == StorePostgres && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxPageSize < 1 || c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: page limits must be positive", ErrInvalidConfig)
	case c.WinPoints < 0 || c.LossPoints < 0 || c.MVPBonus < 0 || c.LoserMVPBonus < 0:
		return fmt.Errorf("%w: point rules must not be negative", ErrInvalidConfig)
	}
	return nil
}
