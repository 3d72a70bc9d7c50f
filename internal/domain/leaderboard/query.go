// Package leaderboard answers ranked read queries over a season's records.
//
// Records are ordered by total points, then win rate, then matches won, all
// descending. Records equal on all three share a rank, and the next distinct
// record is ranked 1 + the number of records strictly ahead of it (1, 1, 3).
// Within a tie, player id ascending fixes the presentation order only.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const (
	defaultMaxPageSize = 100
	defaultMaxLimit    = 1000
)

// NameResolver returns a player's display name, or "" when unknown.
type NameResolver interface {
	DisplayName(ctx context.Context, playerID string) string
}

type noNames struct{}

func (noNames) DisplayName(context.Context, string) string { return "" }

// Query is the read side of the ranking subsystem. It never writes.
type Query struct {
	store         repository.Store
	names         NameResolver
	defaultSeason string
	maxPageSize   int
	maxLimit      int
	log           logger.Logger
}

// NewQuery constructs a Query over store.
func NewQuery(store repository.Store, opts ...Option) *Query {
	q := &Query{
		store:       store,
		names:       noNames{},
		maxPageSize: defaultMaxPageSize,
		maxLimit:    defaultMaxLimit,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Leaderboard returns page (1-based) of season, pageSize entries per page.
// pageSize is capped by the configured maximum. An unknown season yields an
// empty page.
func (q *Query) Leaderboard(ctx context.Context, season string, page, pageSize int) (types.Page, error) {
	metrics.RecordLeaderboardQuery("page")
	if page < 1 || pageSize < 1 {
		return types.Page{}, fmt.Errorf("%w: page=%d page_size=%d", ErrInvalidPage, page, pageSize)
	}
	season = q.season(season)
	pageSize = min(pageSize, q.maxPageSize)
	if page-1 > math.MaxInt/pageSize {
		return types.Page{}, fmt.Errorf("%w: page=%d overflows offset", ErrInvalidPage, page)
	}

	entries, err := q.page(ctx, season, (page-1)*pageSize, pageSize)
	if err != nil {
		return types.Page{}, err
	}
	total, err := q.store.Count(ctx, season)
	if err != nil {
		return types.Page{}, fmt.Errorf("count season %s: %w", season, err)
	}
	return types.Page{
		Season:   season,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Entries:  entries,
	}, nil
}

// TopN returns the first n entries of season. n is capped by the configured
// maximum.
func (q *Query) TopN(ctx context.Context, season string, n int) ([]types.Entry, error) {
	metrics.RecordLeaderboardQuery("top")
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	return q.page(ctx, q.season(season), 0, min(n, q.maxLimit))
}

// RankOf returns the player's standard competition rank in season, or
// ErrNotFound when the player has no record there.
func (q *Query) RankOf(ctx context.Context, playerID, season string) (int, error) {
	metrics.RecordLeaderboardQuery("rank")
	e, err := q.rank(ctx, playerID, q.season(season))
	if err != nil {
		return 0, err
	}
	return e.Rank, nil
}

// Card returns the player's ranked entry in season with its display name.
func (q *Query) Card(ctx context.Context, playerID, season string) (types.Entry, error) {
	metrics.RecordLeaderboardQuery("card")
	e, err := q.rank(ctx, playerID, q.season(season))
	if err != nil {
		return types.Entry{}, err
	}
	return types.NewEntry(e.Record, e.Rank, q.names.DisplayName(ctx, playerID)), nil
}

// Seasons lists season labels holding records, descending.
func (q *Query) Seasons(ctx context.Context) ([]string, error) {
	metrics.RecordLeaderboardQuery("seasons")
	seasons, err := q.store.Seasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	if seasons == nil {
		seasons = []string{}
	}
	return seasons, nil
}

// DefaultSeason returns the season used when callers pass none.
func (q *Query) DefaultSeason() string {
	return q.defaultSeason
}

func (q *Query) page(ctx context.Context, season string, offset, limit int) ([]types.Entry, error) {
	rows, err := q.store.Page(ctx, season, offset, limit)
	if err != nil {
		q.log.Error(ctx, "leaderboard page failed", logger.String("season", season), logger.Error(err))
		return nil, fmt.Errorf("page season %s: %w", season, err)
	}
	out := make([]types.Entry, len(rows))
	for i, row := range rows {
		out[i] = types.NewEntry(row.Record, row.Rank, q.names.DisplayName(ctx, row.Record.PlayerID))
	}
	return out, nil
}

func (q *Query) rank(ctx context.Context, playerID, season string) (repository.Entry, error) {
	e, err := q.store.Rank(ctx, model.Key{PlayerID: playerID, Season: season})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Entry{}, fmt.Errorf("%w: player=%s season=%s", ErrNotFound, playerID, season)
	}
	if err != nil {
		return repository.Entry{}, fmt.Errorf("rank player %s: %w", playerID, err)
	}
	return e, nil
}

func (q *Query) season(s string) string {
	if s == "" {
		return q.defaultSeason
	}
	return s
}
