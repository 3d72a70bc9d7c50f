// Package service owns the ladder components and exposes the operations the
// HTTP API depends on.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/ladder/internal/adapters/directory"
	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/adapters/mq/worker"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/adapters/repository/postgres"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/internal/domain/leaderboard"
	"github.com/okian/ladder/internal/domain/matchresult"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Stats is the JSON body of GET /stats.
type Stats struct {
	Started       bool          `json:"started"`
	Store         string        `json:"store"`
	DefaultSeason string        `json:"default_season"`
	Seasons       int           `json:"seasons"`
	Records       int           `json:"default_season_records"`
	Players       int           `json:"players"`
	QueueLength   int           `json:"queue_length"`
	QueueCapacity int           `json:"queue_capacity"`
	AppliedIDs    int64         `json:"applied_match_ids"`
	Workers       *worker.Stats `json:"workers,omitempty"`
}

// Service implements the API dependencies for the ladder.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	// Core components
	store     repository.Store
	guard     dedupe.Deduper
	roster    *directory.Roster
	engine    *ranking.Engine
	query     *leaderboard.Query
	processor *matchresult.Processor
	queue     *queue.InMemoryQueue
	pool      *worker.Pool

	closers    []func() error
	stopWorker context.CancelFunc

	// Components built by Start rather than injected; Stop discards them.
	ownedStore bool
	ownedGuard bool

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a record store instead of building one from config.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithGuard injects the applied-match guard instead of building one.
func WithGuard(g dedupe.Deduper) Option {
	return func(s *Service) {
		s.guard = g
	}
}

// New constructs a Service for cfg. A nil cfg uses config.New defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:    cfg,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds every component and launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting ladder service...")

	if err := s.openStore(ctx); err != nil {
		s.closeAll(ctx)
		return err
	}
	if err := s.loadRoster(ctx); err != nil {
		s.closeAll(ctx)
		return err
	}
	if s.guard == nil {
		s.guard = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
		s.ownedGuard = true
	}

	engineOpts := []ranking.Option{
		ranking.WithRules(s.cfg.Rules()),
		ranking.WithStrictBonus(s.cfg.StrictBonus),
		ranking.WithLogger(s.logger.Named("engine")),
	}
	if s.roster.Len() > 0 {
		engineOpts = append(engineOpts, ranking.WithPlayerDirectory(s.roster))
	}
	s.engine = ranking.NewEngine(s.store, engineOpts...)

	s.query = leaderboard.NewQuery(s.store,
		leaderboard.WithDefaultSeason(s.cfg.Season),
		leaderboard.WithNameResolver(s.roster),
		leaderboard.WithMaxPageSize(s.cfg.MaxPageSize),
		leaderboard.WithMaxLimit(s.cfg.MaxLeaderboardLimit),
		leaderboard.WithLogger(s.logger.Named("leaderboard")),
	)

	s.processor = matchresult.NewProcessor(s.engine,
		matchresult.WithSeason(s.cfg.Season),
		matchresult.WithGuard(s.guard),
		matchresult.WithReapply(s.cfg.ReapplyFinalized),
		matchresult.WithFanout(s.cfg.Fanout),
		matchresult.WithLogger(s.logger.Named("matchresult")),
	)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s.processor, worker.WithLogger(s.logger))

	// Workers outlive the start context; Stop drains them.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWorker = cancel
	s.pool.Start(workerCtx)

	s.started = true
	s.logger.Info(ctx, "ladder service started",
		logger.String("store", s.cfg.Store),
		logger.String("season", s.cfg.Season),
		logger.Int("workers", s.pool.Stats().Workers),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.Int("players", s.roster.Len()),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) error {
	if s.store != nil {
		return nil
	}
	switch s.cfg.Store {
	case config.StorePostgres:
		if s.cfg.AutoMigrate {
			if err := postgres.MigrateUp(s.cfg.MigrationsDir, s.cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			s.logger.Info(ctx, "migrations applied", logger.String("dir", s.cfg.MigrationsDir))
		}
		db, err := postgres.Open(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		store := postgres.NewStore(db)
		s.store, s.ownedStore = store, true
		s.closers = append(s.closers, store.Close)
		if s.guard == nil {
			s.guard, s.ownedGuard = postgres.NewLedger(db), true
		}
		s.logger.Info(ctx, "using postgres store")
	default:
		store := repository.NewTreapStore(ctx)
		s.store, s.ownedStore = store, true
		s.closers = append(s.closers, store.Close)
		s.logger.Info(ctx, "using treap store")
	}
	return nil
}

func (s *Service) loadRoster(ctx context.Context) error {
	s.roster = directory.NewRoster(s.cfg.Players)
	if s.cfg.PlayersFile == "" {
		return nil
	}
	n, err := s.roster.LoadFile(s.cfg.PlayersFile)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "player roster loaded", logger.String("file", s.cfg.PlayersFile), logger.Int("players", n))
	return nil
}

// Stop drains the queue, stops the workers, and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ladder service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.stopWorker()
	s.closeAll(ctx)

	s.started = false
	s.logger.Info(ctx, "ladder service stopped")
	return errors.Join(errs...)
}

func (s *Service) closeAll(ctx context.Context) {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Error(ctx, "close failed", logger.Error(err))
		}
	}
	s.closers = nil
	if s.ownedStore {
		s.store, s.ownedStore = nil, false
	}
	if s.ownedGuard {
		s.guard, s.ownedGuard = nil, false
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Submit enqueues a finalized match for asynchronous processing. It returns
// matchresult.ErrNotFinalized for an unfinalized match and queue.ErrFull on
// backpressure.
func (s *Service) Submit(ctx context.Context, m model.MatchResult) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !m.Finalized() {
		metrics.RecordMatchRejected()
		return fmt.Errorf("%w: match=%s", matchresult.ErrNotFinalized, m.MatchID)
	}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return fmt.Errorf("enqueue match %s: %w", m.MatchID, err)
	}
	s.logger.Debug(ctx, "match enqueued", logger.String("match_id", m.MatchID))
	return nil
}

// Process applies a finalized match synchronously.
func (s *Service) Process(ctx context.Context, m model.MatchResult) (matchresult.Report, error) {
	if err := s.ready(); err != nil {
		return matchresult.Report{}, err
	}
	return s.processor.Process(ctx, m)
}

// Leaderboard returns one page of a season.
func (s *Service) Leaderboard(ctx context.Context, season string, page, pageSize int) (types.Page, error) {
	if err := s.ready(); err != nil {
		return types.Page{}, err
	}
	return s.query.Leaderboard(ctx, season, page, pageSize)
}

// TopN returns the first n entries of a season.
func (s *Service) TopN(ctx context.Context, season string, n int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.query.TopN(ctx, season, n)
}

// Card returns a player's ranked entry for a season.
func (s *Service) Card(ctx context.Context, playerID, season string) (types.Entry, error) {
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	return s.query.Card(ctx, playerID, season)
}

// Seasons lists the known seasons, newest label first.
func (s *Service) Seasons(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.query.Seasons(ctx)
}

// AddBonus credits points to a player and returns the updated card.
func (s *Service) AddBonus(ctx context.Context, playerID, season string, points int) (types.Entry, error) {
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	season = s.season(season)
	if _, err := s.engine.AddBonusPoints(ctx, playerID, season, points); err != nil {
		return types.Entry{}, err
	}
	return s.query.Card(ctx, playerID, season)
}

// ResetSeason deletes every record of season and returns how many.
func (s *Service) ResetSeason(ctx context.Context, season string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.engine.ResetSeason(ctx, season)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "season reset", logger.String("season", season), logger.Int("removed", n))
	return n, nil
}

// DefaultSeason returns the season applied when a request names none.
func (s *Service) DefaultSeason() string {
	return s.cfg.Season
}

func (s *Service) season(label string) string {
	if label == "" {
		return s.cfg.Season
	}
	return label
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		Store:         s.cfg.Store,
		DefaultSeason: s.cfg.Season,
	}
	if !s.started {
		return stats
	}

	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats: list seasons", logger.Error(err))
	}
	stats.Seasons = len(seasons)
	if n, err := s.store.Count(ctx, s.cfg.Season); err == nil {
		stats.Records = n
	}
	stats.Players = s.roster.Len()
	stats.QueueLength = s.queue.Len()
	stats.QueueCapacity = s.queue.Capacity()
	stats.AppliedIDs = s.guard.Size()
	ws := s.pool.Stats()
	stats.Workers = &ws

	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateSeasonsTotal(stats.Seasons)
	return stats
}
