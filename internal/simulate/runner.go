package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/pkg/logger"
)

const (
	directoryPermission = 0o750
	pollInterval        = 250 * time.Millisecond
)

// Run generates matches, submits them, waits for them to land and verifies
// every player's record plus the top of the leaderboard.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting ladder simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("season", cfg.Season),
		logger.Int("matches", cfg.Matches),
		logger.Int("players", cfg.Players),
		logger.Int("teamSize", cfg.TeamSize),
		logger.Int("workers", cfg.Workers),
		logger.Bool("sync", cfg.Sync))

	if err := c.getJSON(ctx, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	matches := Generate(cfg)
	stats.MatchesGenerated = len(matches)
	if cfg.OutputFile != "" {
		if err := saveMatches(cfg.OutputFile, matches); err != nil {
			log.Warn(ctx, "failed to save matches", logger.Error(err))
		}
	}

	accepted := submitAll(ctx, cfg, c, matches, stats, log)
	tallies := Expect(accepted, cfg.Rules)

	deadline := time.Now().Add(cfg.Settle)
	var mismatches []error
	for {
		mismatches = verifyPlayers(ctx, cfg, c, tallies)
		if len(mismatches) == 0 || cfg.Sync || time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	stats.PlayersVerified = len(tallies) - len(mismatches)

	top, err := c.top(ctx, cfg.Season, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyLeaderboard(top); err != nil {
		mismatches = append(mismatches, err)
	}
	if err := verifyTopAgainstTally(top, tallies); err != nil {
		mismatches = append(mismatches, err)
	}

	stats.Mismatches = len(mismatches)
	stats.Duration = time.Since(stats.StartTime)
	for i, m := range mismatches {
		if i >= cfg.TopN && !cfg.Verbose {
			break
		}
		log.Warn(ctx, "verification failed", logger.Error(m))
	}
	logStats(ctx, log, stats)

	if len(mismatches) > 0 {
		return stats, fmt.Errorf("%d checks failed: %w", len(mismatches), errors.Join(mismatches...))
	}
	return stats, nil
}

// submitAll posts every match with at most cfg.Workers in flight and returns
// the ones the service took.
func submitAll(ctx context.Context, cfg *Config, c *client, matches []Match, stats *Stats, log logger.Logger) []Match {
	var submitted, okCount, dup, failed atomic.Int64
	took := make([]bool, len(matches))

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i := range matches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := c.submit(ctx, matches[i], cfg.Sync)
			submitted.Add(1)
			switch outcome {
			case outcomeAccepted:
				okCount.Add(1)
				took[i] = true
			case outcomeDuplicate:
				dup.Add(1)
			default:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(ctx, "match submission failed", logger.String("match_id", matches[i].MatchID), logger.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.MatchesSubmitted = int(submitted.Load())
	stats.MatchesAccepted = int(okCount.Load())
	stats.MatchesDuplicate = int(dup.Load())
	stats.MatchesFailed = int(failed.Load())
	log.Info(ctx, "match submission completed",
		logger.Int("accepted", stats.MatchesAccepted),
		logger.Int("duplicate", stats.MatchesDuplicate),
		logger.Int("failed", stats.MatchesFailed))

	out := make([]Match, 0, stats.MatchesAccepted)
	for i, ok := range took {
		if ok {
			out = append(out, matches[i])
		}
	}
	return out
}

// verifyPlayers fetches every tallied player's card and returns the
// disagreements.
func verifyPlayers(ctx context.Context, cfg *Config, c *client, tallies map[string]Tally) []error {
	ids := Players(tallies)
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, id := range ids {
		g.Go(func() error {
			got, err := c.rank(ctx, id, cfg.Season)
			if err != nil {
				errs[i] = fmt.Errorf("%w: player %s: %w", ErrMismatch, id, err)
				return nil
			}
			errs[i] = compareEntry(got, tallies[id])
			return nil
		})
	}
	_ = g.Wait()

	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func saveMatches(path string, matches []Match) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesAccepted", stats.MatchesAccepted),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("playersVerified", stats.PlayersVerified),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchesPerSecond", perSecond))
}
