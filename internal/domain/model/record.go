// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Key identifies a ranking record. At most one record exists per key.
type Key struct {
	PlayerID string
	Season   string
}

// Record is a player's aggregated statistics for one season.
type Record struct {
	ID            string    // opaque id, assigned on creation
	PlayerID      string    // external player reference
	Season        string    // season label partitioning all statistics
	TotalPoints   int       // wins plus bonuses; only ever added to
	MatchesWon    int       // never exceeds MatchesPlayed
	MatchesPlayed int       // finalized matches the player took part in
	WinRate       float64   // WinRate(MatchesWon, MatchesPlayed)
	LastUpdated   time.Time // last points or match-count change
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key returns the record's (player, season) key.
func (r *Record) Key() Key {
	return Key{PlayerID: r.PlayerID, Season: r.Season}
}

// Standing returns the tuple the record is ranked by.
func (r *Record) Standing() Standing {
	return Standing{Points: r.TotalPoints, WinRate: r.WinRate, Won: r.MatchesWon}
}

// Apply adds d to the record's counters and recomputes the win rate.
// A zero delta still bumps UpdatedAt but leaves LastUpdated alone.
func (r *Record) Apply(d Delta, now time.Time) {
	r.UpdatedAt = now
	if d.IsZero() {
		return
	}
	r.TotalPoints += d.Points
	r.MatchesPlayed += d.Played
	r.MatchesWon += d.Won
	r.WinRate = WinRate(r.MatchesWon, r.MatchesPlayed)
	r.LastUpdated = now
}

// Delta is the unit of change a store applies atomically to one record.
type Delta struct {
	Points int
	Played int
	Won    int
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d.Points == 0 && d.Played == 0 && d.Won == 0
}

// WinRate returns won/played rounded half up to two decimals, or 0 when
// nothing has been played yet. The rule is floor(raw*100 + 0.5) / 100.
func WinRate(won, played int) float64 {
	if played <= 0 {
		return 0
	}
	raw := float64(won) / float64(played)
	// The conversion keeps raw*100 from being fused with the addition,
	// so the result matches the SQL store bit for bit.
	return math.Floor(float64(raw*100)+0.5) / 100
}
