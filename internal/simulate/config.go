// Package simulate drives a running ladder service with random finalized
// matches and checks the rankings it reports against a local tally.
package simulate

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/ladder/internal/domain/scoring"
)

const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultMatches  = 1000
	DefaultPlayers  = 100
	DefaultTeamSize = 5
	DefaultTopN     = 20
	DefaultTimeout  = 30 * time.Second
	DefaultSettle   = 2 * time.Minute
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Season     string        // Season label sent with every match; empty uses the service default
	Matches    int           // Number of matches to generate
	Players    int           // Size of the player pool
	TeamSize   int           // Players per side
	TopN       int           // Leaderboard entries to verify
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for async processing
	Sync       bool          // Use POST /matches/sync instead of the queue
	OutputFile string        // Optional JSON dump of generated matches
	Verbose    bool

	// Rules must match the service's point rules for verification to pass.
	Rules scoring.Rules
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		BaseURL:  DefaultBaseURL,
		Matches:  DefaultMatches,
		Players:  DefaultPlayers,
		TeamSize: DefaultTeamSize,
		TopN:     DefaultTopN,
		Workers:  runtime.NumCPU() * 2,
		Timeout:  DefaultTimeout,
		Settle:   DefaultSettle,
		Rules:    scoring.NewRules(),
	}
}

// Validate checks that a run can be generated from c.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Matches < 1:
		return fmt.Errorf("%w: matches must be >= 1", ErrInvalidConfig)
	case c.TeamSize < 1:
		return fmt.Errorf("%w: team size must be >= 1", ErrInvalidConfig)
	case c.Players < 2*c.TeamSize:
		return fmt.Errorf("%w: need at least %d players for teams of %d", ErrInvalidConfig, 2*c.TeamSize, c.TeamSize)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	MatchesGenerated int
	MatchesSubmitted int
	MatchesAccepted  int
	MatchesDuplicate int
	MatchesFailed    int
	PlayersVerified  int
	Mismatches       int
	StartTime        time.Time
	Duration         time.Duration
}
