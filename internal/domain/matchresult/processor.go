// Package matchresult turns one finalized match into ranking updates.
package matchresult

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const defaultFanout = 8

// Steps of a match update, in the order they are applied.
const (
	StepWin      = "win"
	StepLoss     = "loss"
	StepMVP      = "mvp"
	StepLoserMVP = "loser_mvp"
)

// Engine is the ranking writer the processor drives.
type Engine interface {
	RecordMatch(ctx context.Context, playerID, season string, won bool) (model.Record, error)
	AddBonusPoints(ctx context.Context, playerID, season string, points int) (model.Record, error)
	Rules() scoring.Rules
}

// Failure is one player update that did not apply.
type Failure struct {
	PlayerID string `json:"player_id"`
	Step     string `json:"step"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// Report describes what one Process call applied.
type Report struct {
	MatchID     string    `json:"match_id"`
	Season      string    `json:"season"`
	FinalizedAt time.Time `json:"finalized_at"`
	Applied     int       `json:"applied"`
	Failures    []Failure `json:"failures,omitempty"`
}

// Processor applies finalized matches. Each player update is an independent
// unit of work: a failing player never blocks or rolls back the others.
type Processor struct {
	engine  Engine
	guard   dedupe.Deduper
	season  string
	reapply bool
	fanout  int
	log     logger.Logger
}

// NewProcessor constructs a Processor driving engine.
func NewProcessor(engine Engine, opts ...Option) *Processor {
	p := &Processor{
		engine: engine,
		fanout: defaultFanout,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Season returns the season applied to matches that carry none.
func (p *Processor) Season() string {
	return p.season
}

// Process applies m: a win for every winner, a loss for every loser, then
// the MVP and losing-side MVP bonuses. Per-player failures are returned in
// the report with a nil error. The error is non-nil only when the whole
// match was rejected: not finalized, no season, or already applied.
func (p *Processor) Process(ctx context.Context, m model.MatchResult) (Report, error) {
	start := time.Now()

	if !m.Finalized() {
		metrics.RecordMatchRejected()
		return Report{}, fmt.Errorf("%w: match=%s", ErrNotFinalized, m.MatchID)
	}
	season := m.Season
	if season == "" {
		season = p.season
	}
	if season == "" {
		return Report{}, fmt.Errorf("%w: match=%s has no season", ranking.ErrInvalidInput, m.MatchID)
	}

	guarded, err := p.claim(ctx, m.MatchID)
	if err != nil {
		return Report{}, err
	}

	finalizedAt := m.FinalizedAt
	if finalizedAt.IsZero() {
		finalizedAt = start.UTC()
	}
	report := Report{MatchID: m.MatchID, Season: season, FinalizedAt: finalizedAt}
	var mu sync.Mutex
	record := func(playerID, step string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			report.Applied++
			metrics.RecordPlayerUpdate(step)
			return
		}
		report.Failures = append(report.Failures, Failure{PlayerID: playerID, Step: step, Reason: err.Error(), Err: err})
		metrics.RecordPlayerUpdateError(step, reason(err))
	}

	p.phase(ctx, unique(m.WinnerPlayerIDs), StepWin, func(ctx context.Context, id string) error {
		_, err := p.engine.RecordMatch(ctx, id, season, true)
		return err
	}, record)
	p.phase(ctx, unique(m.LoserPlayerIDs), StepLoss, func(ctx context.Context, id string) error {
		_, err := p.engine.RecordMatch(ctx, id, season, false)
		return err
	}, record)

	// Bonuses go last so LastUpdated reflects the final state.
	rules := p.engine.Rules()
	for _, b := range []struct {
		playerID string
		award    scoring.Award
		step     string
	}{
		{m.MVPPlayerID, scoring.AwardMVP, StepMVP},
		{m.LoserMVPPlayerID, scoring.AwardLoserMVP, StepLoserMVP},
	} {
		points := rules.BonusFor(b.award)
		if b.playerID == "" || points == 0 {
			continue
		}
		_, err := p.engine.AddBonusPoints(ctx, b.playerID, season, points)
		record(b.playerID, b.step, err)
	}

	if guarded && report.Applied == 0 {
		// Nothing landed; let a retry apply the match.
		if err := p.guard.Unrecord(ctx, m.MatchID); err != nil {
			p.log.Error(ctx, "failed to release match id", logger.String("match_id", m.MatchID), logger.Error(err))
		}
	}

	for _, f := range report.Failures {
		p.log.Warn(ctx, "player ranking update failed",
			logger.String("match_id", m.MatchID),
			logger.String("season", season),
			logger.String("player_id", f.PlayerID),
			logger.String("step", f.Step),
			logger.Error(f.Err))
	}

	metrics.RecordMatchProcessed()
	metrics.RecordProcessLatency(float64(time.Since(start).Milliseconds()))
	p.log.Info(ctx, "match applied",
		logger.String("match_id", m.MatchID),
		logger.String("season", season),
		logger.String("finalized_at", finalizedAt.Format(time.RFC3339)),
		logger.Int("applied", report.Applied),
		logger.Int("failed", len(report.Failures)))
	return report, nil
}

// claim records the match id with the guard. It reports whether the id is
// now held by this call.
func (p *Processor) claim(ctx context.Context, matchID string) (bool, error) {
	if p.guard == nil || p.reapply {
		return false, nil
	}
	if matchID == "" {
		p.log.Debug(ctx, "match without id, applying unguarded")
		return false, nil
	}
	seen, err := p.guard.SeenAndRecord(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("check applied match %s: %w", matchID, err)
	}
	if seen {
		metrics.RecordMatchDuplicate()
		return false, fmt.Errorf("%w: match=%s", ErrAlreadyApplied, matchID)
	}
	return true, nil
}

// phase runs fn for every player with bounded concurrency and waits for all
// of them. fn errors are recorded, never returned, so no update cancels
// another.
func (p *Processor) phase(
	ctx context.Context,
	players []string,
	step string,
	fn func(ctx context.Context, playerID string) error,
	record func(playerID, step string, err error),
) {
	var g errgroup.Group
	g.SetLimit(p.fanout)
	for _, id := range players {
		g.Go(func() error {
			record(id, step, fn(ctx, id))
			return nil
		})
	}
	_ = g.Wait()
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func reason(err error) string {
	switch {
	case errors.Is(err, ranking.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, ranking.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ranking.ErrInvalidBonus):
		return "invalid_bonus"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store"
	}
}
