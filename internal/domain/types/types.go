// Package types contains read shapes shared by the query and transport layers.
package types

import (
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// Entry is one ranked row of a season leaderboard.
type Entry struct {
	PlayerID          string    `json:"player_id"`
	PlayerDisplayName string    `json:"player_display_name"`
	TotalPoints       int       `json:"total_points"`
	MatchesWon        int       `json:"matches_won"`
	MatchesPlayed     int       `json:"matches_played"`
	WinRate           float64   `json:"win_rate"`
	Rank              int       `json:"rank"`
	Season            string    `json:"season"`
	LastUpdated       time.Time `json:"last_updated"`
}

// NewEntry projects rec at rank, field by field.
func NewEntry(rec model.Record, rank int, displayName string) Entry {
	return Entry{
		PlayerID:          rec.PlayerID,
		PlayerDisplayName: displayName,
		TotalPoints:       rec.TotalPoints,
		MatchesWon:        rec.MatchesWon,
		MatchesPlayed:     rec.MatchesPlayed,
		WinRate:           rec.WinRate,
		Rank:              rank,
		Season:            rec.Season,
		LastUpdated:       rec.LastUpdated,
	}
}

// Page is one page of a season leaderboard.
type Page struct {
	Season   string  `json:"season"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
	Entries  []Entry `json:"entries"`
}
