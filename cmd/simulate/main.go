// Command simulate floods a running ladder service with random finalized
// matches and verifies the rankings it reports.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/internal/simulate"
	"github.com/okian/ladder/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", simulate.DefaultBaseURL, "Base URL of the service")
		season     = flag.String("season", "", "Season label for every match (default: service default)")
		matches    = flag.Int("matches", simulate.DefaultMatches, "Number of matches to submit")
		players    = flag.Int("players", simulate.DefaultPlayers, "Size of the player pool")
		teamSize   = flag.Int("team-size", simulate.DefaultTeamSize, "Players per side")
		topN       = flag.Int("top", simulate.DefaultTopN, "Leaderboard entries to verify")
		workers    = flag.Int("workers", runtime.NumCPU()*2, "Concurrent submitters")
		timeout    = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", simulate.DefaultSettle, "How long to wait for queued matches to apply")
		syncMode   = flag.Bool("sync", false, "Submit through POST /matches/sync")
		outputFile = flag.String("output", "", "Write generated matches to this JSON file")
		winPts     = flag.Int("win-points", scoring.DefaultWinPoints, "Service win points")
		lossPts    = flag.Int("loss-points", scoring.DefaultLossPoints, "Service loss points")
		mvpPts     = flag.Int("mvp-bonus", scoring.DefaultMVPBonus, "Service MVP bonus")
		loserMVP   = flag.Int("loser-mvp-bonus", scoring.DefaultLoserMVPBonus, "Service losing-side MVP bonus")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.InitWith(logger.Options{Format: *logFormat, Level: level}); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("simulate")

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:    *baseURL,
		Season:     *season,
		Matches:    *matches,
		Players:    *players,
		TeamSize:   *teamSize,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Sync:       *syncMode,
		OutputFile: *outputFile,
		Verbose:    *verbose,
		Rules: scoring.NewRules(
			scoring.WithWinPoints(*winPts),
			scoring.WithLossPoints(*lossPts),
			scoring.WithMVPBonus(*mvpPts),
			scoring.WithLoserMVPBonus(*loserMVP),
		),
	}

	if _, err := simulate.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "simulation passed")
}
