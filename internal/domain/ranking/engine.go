// Package ranking maintains per-season player statistics from match
// outcomes and bonus awards.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// PlayerDirectory resolves players owned outside the ranking subsystem.
type PlayerDirectory interface {
	Exists(ctx context.Context, playerID string) (bool, error)
}

// Engine is the only writer of ranking records. Every mutation is a single
// atomic store Apply, so concurrent updates of one key never lose a write.
type Engine struct {
	store       repository.Store
	players     PlayerDirectory
	rules       scoring.Rules
	strictBonus bool
	now         func() time.Time
	log         logger.Logger
}

// NewEngine constructs an Engine on store.
func NewEngine(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		rules: scoring.NewRules(),
		now:   func() time.Time { return time.Now().UTC() },
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's point table.
func (e *Engine) Rules() scoring.Rules {
	return e.rules
}

// GetOrCreate returns the record for (playerID, season), creating a zeroed
// one when absent. A concurrent creator winning the insert is resolved by
// reading its record.
func (e *Engine) GetOrCreate(ctx context.Context, playerID, season string) (model.Record, error) {
	if err := validateKey(playerID, season); err != nil {
		return model.Record{}, err
	}
	key := model.Key{PlayerID: playerID, Season: season}

	rec, err := e.store.Get(ctx, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Record{}, fmt.Errorf("get ranking record: %w", err)
	}

	now := e.now()
	rec, err = e.store.Insert(ctx, model.Record{
		PlayerID:  playerID,
		Season:    season,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, repository.ErrRecordConflict) {
		e.log.Debug(ctx, "record created concurrently, fetching",
			logger.String("player_id", playerID), logger.String("season", season))
		rec, err = e.store.Get(ctx, key)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("create ranking record: %w", err)
	}
	return rec, nil
}

// RecordMatch counts one finished match for the player: played+1, and on a
// win won+1 plus the win points. A loss adds the loss points (0 by default).
func (e *Engine) RecordMatch(ctx context.Context, playerID, season string, won bool) (model.Record, error) {
	if err := validateKey(playerID, season); err != nil {
		return model.Record{}, err
	}
	if err := e.checkPlayer(ctx, playerID); err != nil {
		return model.Record{}, err
	}

	rec, err := e.store.Apply(ctx, model.Key{PlayerID: playerID, Season: season}, e.rules.MatchDelta(won), e.now())
	if err != nil {
		return model.Record{}, fmt.Errorf("record match: %w", err)
	}
	e.log.Debug(ctx, "match recorded",
		logger.String("player_id", playerID),
		logger.String("season", season),
		logger.Bool("won", won),
		logger.Int("total_points", rec.TotalPoints))
	return rec, nil
}

// AddBonusPoints adds points without touching match counters. Negative
// values are accepted unless the engine is strict.
func (e *Engine) AddBonusPoints(ctx context.Context, playerID, season string, points int) (model.Record, error) {
	if err := validateKey(playerID, season); err != nil {
		return model.Record{}, err
	}
	if e.strictBonus && points < 0 {
		return model.Record{}, fmt.Errorf("%w: %d", ErrInvalidBonus, points)
	}
	if err := e.checkPlayer(ctx, playerID); err != nil {
		return model.Record{}, err
	}

	rec, err := e.store.Apply(ctx, model.Key{PlayerID: playerID, Season: season}, model.Delta{Points: points}, e.now())
	if err != nil {
		return model.Record{}, fmt.Errorf("add bonus points: %w", err)
	}
	metrics.RecordBonusPoints(points)
	e.log.Debug(ctx, "bonus points added",
		logger.String("player_id", playerID),
		logger.String("season", season),
		logger.Int("points", points))
	return rec, nil
}

// ResetSeason deletes every record of season and returns how many were
// removed. Irreversible.
func (e *Engine) ResetSeason(ctx context.Context, season string) (int, error) {
	if season == "" {
		return 0, fmt.Errorf("%w: empty season", ErrInvalidInput)
	}
	n, err := e.store.DeleteSeason(ctx, season)
	if err != nil {
		return 0, fmt.Errorf("reset season: %w", err)
	}
	metrics.RecordSeasonReset(season)
	e.log.Warn(ctx, "season reset", logger.String("season", season), logger.Int("removed", n))
	return n, nil
}

func (e *Engine) checkPlayer(ctx context.Context, playerID string) error {
	if e.players == nil {
		return nil
	}
	ok, err := e.players.Exists(ctx, playerID)
	if err != nil {
		return fmt.Errorf("lookup player %s: %w", playerID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return nil
}

func validateKey(playerID, season string) error {
	switch {
	case playerID == "":
		return fmt.Errorf("%w: empty player id", ErrInvalidInput)
	case season == "":
		return fmt.Errorf("%w: empty season", ErrInvalidInput)
	}
	return nil
}
