package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func key(player, season string) model.Key {
	return model.Key{PlayerID: player, Season: season}
}

func seed(t *testing.T, s *TreapStore, season string, rows map[string]model.Delta) {
	t.Helper()
	for player, d := range rows {
		if _, err := s.Apply(context.Background(), key(player, season), d, t0); err != nil {
			t.Fatalf("apply %s: %v", player, err)
		}
	}
}

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if _, err := store.Get(ctx, key("p1", "2025")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec, err := store.Apply(ctx, key("p1", "2025"), model.Delta{Points: 3, Played: 1, Won: 1}, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if rec.TotalPoints != 3 || rec.MatchesPlayed != 1 || rec.MatchesWon != 1 || rec.WinRate != 1.0 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !rec.CreatedAt.Equal(t0) || !rec.LastUpdated.Equal(t0) {
		t.Errorf("unexpected timestamps: %+v", rec)
	}

	got, err := store.Get(ctx, key("p1", "2025"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("expected same identity, got %s vs %s", got.ID, rec.ID)
	}

	if n, _ := store.Count(ctx, "2025"); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}

func TestTreapStore_InsertConflict(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	first, err := store.Insert(ctx, model.Record{PlayerID: "p1", Season: "2025", CreatedAt: t0, UpdatedAt: t0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Insert(ctx, model.Record{PlayerID: "p1", Season: "2025"}); !errors.Is(err, ErrRecordConflict) {
		t.Fatalf("expected ErrRecordConflict, got %v", err)
	}

	// Same player in another season is a different key.
	other, err := store.Insert(ctx, model.Record{PlayerID: "p1", Season: "2024"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ID == first.ID {
		t.Error("expected distinct ids across seasons")
	}
}

func TestTreapStore_RanksWithTies(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	// (10, 0.8, 4), (10, 0.8, 4), (7, 0.5, 2)
	seed(t, store, "2025", map[string]model.Delta{
		"alice": {Points: 10, Played: 5, Won: 4},
		"bob":   {Points: 10, Played: 5, Won: 4},
		"carol": {Points: 7, Played: 4, Won: 2},
	})

	entries, err := store.Page(ctx, "2025", 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []struct {
		player string
		rank   int
	}{{"alice", 1}, {"bob", 1}, {"carol", 3}}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Record.PlayerID != w.player || entries[i].Rank != w.rank {
			t.Errorf("entry %d: expected %s rank %d, got %s rank %d",
				i, w.player, w.rank, entries[i].Record.PlayerID, entries[i].Rank)
		}
	}

	// A page that starts inside a tie keeps the shared rank.
	page, err := store.Page(ctx, "2025", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 || page[0].Rank != 1 || page[1].Rank != 3 {
		t.Errorf("unexpected second page: %+v", page)
	}

	n, err := store.CountGreater(ctx, "2025", model.Standing{Points: 7, WinRate: 0.5, Won: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 records ahead of carol, got %d", n)
	}
}

func TestTreapStore_OrderingTieBreakers(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	seed(t, store, "s", map[string]model.Delta{
		"a": {Points: 6, Played: 4, Won: 2}, // 0.5
		"b": {Points: 6, Played: 3, Won: 2}, // 0.67
		"c": {Points: 6, Played: 2, Won: 1}, // 0.5, fewer wins
		"d": {Points: 9, Played: 9, Won: 3},
	})

	entries, err := store.Page(ctx, "s", 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := make([]string, len(entries))
	for i, e := range entries {
		order[i] = e.Record.PlayerID
	}
	want := []string{"d", "b", "a", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Errorf("expected rank %d for %s, got %d", i+1, e.Record.PlayerID, e.Rank)
		}
	}
}

func TestTreapStore_ReorderOnUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	seed(t, store, "s", map[string]model.Delta{
		"a": {Points: 3, Played: 1, Won: 1},
		"b": {Points: 0, Played: 1},
	})
	if _, err := store.Apply(ctx, key("b", "s"), model.Delta{Points: 6, Played: 2, Won: 2}, t0.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, _ := store.Page(ctx, "s", 0, 1)
	if len(entries) != 1 || entries[0].Record.PlayerID != "b" {
		t.Fatalf("expected b to lead after update, got %+v", entries)
	}
	if n, _ := store.Count(ctx, "s"); n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
}

func TestTreapStore_SeasonsAndReset(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	seed(t, store, "2024", map[string]model.Delta{"p": {Points: 3, Played: 1, Won: 1}})
	seed(t, store, "2025", map[string]model.Delta{"p": {Played: 1}, "q": {Played: 1}})
	seed(t, store, "2023", map[string]model.Delta{"p": {Played: 1}})

	seasons, err := store.Seasons(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(seasons) != "[2025 2024 2023]" {
		t.Errorf("expected descending seasons, got %v", seasons)
	}

	removed, err := store.DeleteSeason(ctx, "2025")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, key("p", "2025")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected record gone, got %v", err)
	}
	if rec, err := store.Get(ctx, key("p", "2024")); err != nil || rec.TotalPoints != 3 {
		t.Errorf("expected 2024 untouched, got %+v %v", rec, err)
	}

	entries, err := store.Page(ctx, "unknown", 0, 10)
	if err != nil || len(entries) != 0 {
		t.Errorf("expected empty page for unknown season, got %v %v", entries, err)
	}
}

func TestTreapStore_InvalidLimit(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if _, err := store.Page(ctx, "s", 0, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := store.Page(ctx, "s", -1, 5); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapStore_ConcurrentApplySameKey(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Apply(ctx, key("hot", "s"), model.Delta{Points: 3, Played: 1, Won: 1}, time.Now()); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, key("hot", "s"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.MatchesPlayed != n || rec.MatchesWon != n || rec.TotalPoints != 3*n {
		t.Errorf("lost updates: %+v", rec)
	}
	if c, _ := store.Count(ctx, "s"); c != 1 {
		t.Errorf("expected a single record, got %d", c)
	}
}

func TestTreapStore_RankCorrectnessUnderRandomLoad(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		player := fmt.Sprintf("p%03d", rng.Intn(300))
		won := rng.Intn(2)
		d := model.Delta{Played: 1, Won: won, Points: 3 * won}
		if _, err := store.Apply(ctx, key(player, "s"), d, t0); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	entries, err := store.Page(ctx, "s", 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := make([]model.Record, len(entries))
	for i := range entries {
		recs[i] = entries[i].Record
	}
	if !sort.SliceIsSorted(recs, func(i, j int) bool { return model.Before(&recs[i], &recs[j]) }) {
		t.Fatal("page is not in leaderboard order")
	}
	for _, e := range entries {
		greater := 0
		for _, o := range recs {
			if o.Standing().Outranks(e.Record.Standing()) {
				greater++
			}
		}
		if e.Rank != greater+1 {
			t.Fatalf("rank mismatch for %s: got %d want %d", e.Record.PlayerID, e.Rank, greater+1)
		}
	}
}

func BenchmarkTreapStore_Apply(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		player := fmt.Sprintf("p%d", i%10000)
		_, _ = store.Apply(ctx, key(player, "s"), model.Delta{Points: 3, Played: 1, Won: 1}, t0)
	}
}

func BenchmarkTreapStore_Page(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	for i := 0; i < 10000; i++ {
		_, _ = store.Apply(ctx, key(fmt.Sprintf("p%d", i), "s"), model.Delta{Points: i % 97, Played: 1}, t0)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Page(ctx, "s", 5000, 50)
	}
}

func TestTreapStore_Rank(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	seed(t, store, "2025", map[string]model.Delta{
		"alice": {Points: 10, Played: 5, Won: 4},
		"bob":   {Points: 10, Played: 5, Won: 4},
		"carol": {Points: 7, Played: 4, Won: 2},
	})

	for player, want := range map[string]int{"alice": 1, "bob": 1, "carol": 3} {
		e, err := store.Rank(ctx, key(player, "2025"))
		if err != nil {
			t.Fatalf("rank %s: %v", player, err)
		}
		if e.Rank != want || e.Record.PlayerID != player {
			t.Errorf("%s: expected rank %d, got %+v", player, want, e)
		}
	}

	if _, err := store.Rank(ctx, key("dave", "2025")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown player, got %v", err)
	}
	if _, err := store.Rank(ctx, key("alice", "1999")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown season, got %v", err)
	}
}

func seasonGaugeExists(t *testing.T, label string) bool {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "ladder_ranking_records_per_season" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "season" && lp.GetValue() == label {
					return true
				}
			}
		}
	}
	return false
}

func TestTreapStore_MetricsForgetDeletedSeason(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx, WithMetricsUpdateInterval(time.Hour))
	defer store.Close()

	seed(t, store, "gauge-1990", map[string]model.Delta{"a": {Points: 3, Played: 1, Won: 1}})
	store.updateMetrics()
	if !seasonGaugeExists(t, "gauge-1990") {
		t.Fatal("expected a records_per_season series for gauge-1990")
	}

	if _, err := store.DeleteSeason(ctx, "gauge-1990"); err != nil {
		t.Fatalf("delete season: %v", err)
	}
	store.updateMetrics()
	if seasonGaugeExists(t, "gauge-1990") {
		t.Fatal("records_per_season still reports a deleted season")
	}
}
