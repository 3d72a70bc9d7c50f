package repository

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each season owns one treap ordered by model.Before: standing DESC, then
// player id ASC. In-order traversal yields the leaderboard from best to
// worst, and subtree sizes answer "how many outrank this tuple" in
// O(log n) expected time.

const defaultMetricsUpdateInterval = 5 * time.Second

// treap node
type node struct {
	rec   *model.Record
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, rec *model.Record) *node {
	if n == nil {
		return &node{rec: rec, prio: rand.Uint64(), size: 1} //nolint:gosec // treap balance only
	}
	if model.Before(rec, n.rec) {
		n.left = insert(n.left, rec)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, rec)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// deleteNode removes rec, located by its current ordering fields. Callers
// must delete before mutating a record's counters.
func deleteNode(n *node, rec *model.Record) *node {
	if n == nil {
		return nil
	}
	if n.rec == rec {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, rec)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, rec)
		}
	} else if model.Before(rec, n.rec) {
		n.left = deleteNode(n.left, rec)
	} else {
		n.right = deleteNode(n.right, rec)
	}
	fix(n)
	return n
}

// countGreater counts nodes whose standing strictly outranks s.
// Every such node precedes every node tied with or behind s.
func countGreater(n *node, s model.Standing) int {
	count := 0
	for n != nil {
		if n.rec.Standing().Outranks(s) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectRange appends up to limit records in rank order, skipping the
// first *skip of them.
func collectRange(n *node, skip *int, limit int, out *[]*model.Record) {
	if n == nil || len(*out) >= limit {
		return
	}
	if *skip >= nsize(n) {
		*skip -= nsize(n)
		return
	}
	collectRange(n.left, skip, limit, out)
	if len(*out) >= limit {
		return
	}
	if *skip > 0 {
		*skip--
	} else {
		*out = append(*out, n.rec)
	}
	collectRange(n.right, skip, limit, out)
}

// season is one leaderboard partition.
type season struct {
	root     *node
	byPlayer map[string]*model.Record
}

// TreapStore implements Store in memory.
type TreapStore struct {
	mu      sync.RWMutex
	seasons map[string]*season
	newID   func() string

	metricsUpdateInterval time.Duration
	published             map[string]struct{} // season labels last exported; updater goroutine only

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		seasons:               make(map[string]*season),
		newID:                 func() string { return uuid.NewString() },
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Get implements Store.Get.
func (s *TreapStore) Get(ctx context.Context, key model.Key) (model.Record, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if sn, ok := s.seasons[key.Season]; ok {
		if rec, ok := sn.byPlayer[key.PlayerID]; ok {
			return *rec, nil
		}
	}
	return model.Record{}, ErrNotFound
}

// Insert implements Store.Insert.
func (s *TreapStore) Insert(ctx context.Context, rec model.Record) (model.Record, error) {
	defer observeApply(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	sn := s.seasonLocked(rec.Season)
	if _, exists := sn.byPlayer[rec.PlayerID]; exists {
		metrics.RecordErrorByComponent("repository", "conflict")
		return model.Record{}, ErrRecordConflict
	}
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	stored := rec
	sn.byPlayer[rec.PlayerID] = &stored
	sn.root = insert(sn.root, &stored)
	return stored, nil
}

// Apply implements Store.Apply. The whole read-modify-write runs under
// the store's write lock.
func (s *TreapStore) Apply(ctx context.Context, key model.Key, delta model.Delta, now time.Time) (model.Record, error) {
	defer observeApply(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	sn := s.seasonLocked(key.Season)
	rec, ok := sn.byPlayer[key.PlayerID]
	if ok {
		sn.root = deleteNode(sn.root, rec)
	} else {
		rec = &model.Record{
			ID:        s.newID(),
			PlayerID:  key.PlayerID,
			Season:    key.Season,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sn.byPlayer[key.PlayerID] = rec
	}
	rec.Apply(delta, now)
	sn.root = insert(sn.root, rec)
	return *rec, nil
}

// Page implements Store.Page.
func (s *TreapStore) Page(ctx context.Context, seasonLabel string, offset, limit int) ([]Entry, error) {
	defer observeQuery(time.Now())

	if limit < 1 || offset < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sn, ok := s.seasons[seasonLabel]
	if !ok {
		return []Entry{}, nil
	}

	recs := make([]*model.Record, 0, min(limit, nsize(sn.root)))
	skip := offset
	collectRange(sn.root, &skip, limit, &recs)

	out := make([]Entry, len(recs))
	for i, rec := range recs {
		rank := offset + i + 1
		switch {
		case i == 0:
			rank = countGreater(sn.root, rec.Standing()) + 1
		case rec.Standing() == recs[i-1].Standing():
			rank = out[i-1].Rank
		}
		out[i] = Entry{Rank: rank, Record: *rec}
	}
	return out, nil
}

// Rank implements Store.Rank.
func (s *TreapStore) Rank(ctx context.Context, key model.Key) (Entry, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	sn, ok := s.seasons[key.Season]
	if !ok {
		return Entry{}, ErrNotFound
	}
	rec, ok := sn.byPlayer[key.PlayerID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: countGreater(sn.root, rec.Standing()) + 1, Record: *rec}, nil
}

// CountGreater implements Store.CountGreater.
func (s *TreapStore) CountGreater(ctx context.Context, seasonLabel string, st model.Standing) (int, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	sn, ok := s.seasons[seasonLabel]
	if !ok {
		return 0, nil
	}
	return countGreater(sn.root, st), nil
}

// DeleteSeason implements Store.DeleteSeason.
func (s *TreapStore) DeleteSeason(ctx context.Context, seasonLabel string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn, ok := s.seasons[seasonLabel]
	if !ok {
		return 0, nil
	}
	delete(s.seasons, seasonLabel)
	return len(sn.byPlayer), nil
}

// Seasons implements Store.Seasons.
func (s *TreapStore) Seasons(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.seasons))
	for label, sn := range s.seasons {
		if len(sn.byPlayer) > 0 {
			out = append(out, label)
		}
	}
	s.mu.RUnlock()

	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(ctx context.Context, seasonLabel string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sn, ok := s.seasons[seasonLabel]; ok {
		return len(sn.byPlayer), nil
	}
	return 0, nil
}

// seasonLocked returns the partition for label, creating it. Caller holds mu.
func (s *TreapStore) seasonLocked(label string) *season {
	sn, ok := s.seasons[label]
	if !ok {
		sn = &season{byPlayer: make(map[string]*model.Record)}
		s.seasons[label] = sn
	}
	return sn
}

// startMetricsUpdater starts a background goroutine that updates repository metrics.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

// updateMetrics publishes per-season record counts.
func (s *TreapStore) updateMetrics() {
	s.mu.RLock()
	total := 0
	perSeason := make(map[string]int, len(s.seasons))
	for label, sn := range s.seasons {
		perSeason[label] = len(sn.byPlayer)
		total += len(sn.byPlayer)
	}
	s.mu.RUnlock()

	for label := range s.published {
		if _, ok := perSeason[label]; !ok {
			metrics.DeleteRecordsPerSeason(label)
		}
	}
	s.published = make(map[string]struct{}, len(perSeason))
	for label, n := range perSeason {
		metrics.UpdateRecordsPerSeason(label, n)
		s.published[label] = struct{}{}
	}
	metrics.UpdateRecordsTotal(total)
	metrics.UpdateSeasonsTotal(len(perSeason))
}

func observeApply(start time.Time) {
	metrics.RecordStoreApplyLatency(float64(time.Since(start).Milliseconds()))
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
}
