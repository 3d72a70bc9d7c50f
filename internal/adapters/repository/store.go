// Package repository defines the ranking record store contract and its
// in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// Entry is a record positioned on its season's leaderboard.
type Entry struct {
	Rank   int
	Record model.Record
}

// Store is durable keyed storage for ranking records. Implementations
// enforce uniqueness of (PlayerID, Season).
type Store interface {
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key model.Key) (model.Record, error)

	// Insert stores a new record. Returns ErrRecordConflict when a record
	// with the same key already exists.
	Insert(ctx context.Context, rec model.Record) (model.Record, error)

	// Apply atomically adds delta to the record for key, creating a zeroed
	// record first when none exists, and returns the result. Concurrent
	// Apply calls on the same key never lose an update.
	Apply(ctx context.Context, key model.Key, delta model.Delta, now time.Time) (model.Record, error)

	// Page returns up to limit entries of season starting at offset, in
	// leaderboard order, each with its competition rank.
	Page(ctx context.Context, season string, offset, limit int) ([]Entry, error)

	// Rank returns the record for key with its competition rank, read from
	// one consistent snapshot. Returns ErrNotFound when absent.
	Rank(ctx context.Context, key model.Key) (Entry, error)

	// CountGreater returns how many records of season strictly outrank s.
	CountGreater(ctx context.Context, season string, s model.Standing) (int, error)

	// DeleteSeason removes every record of season and returns how many.
	DeleteSeason(ctx context.Context, season string) (int, error)

	// Seasons lists distinct season labels, descending.
	Seasons(ctx context.Context) ([]string, error)

	// Count returns the number of records in season.
	Count(ctx context.Context, season string) (int, error)
}
