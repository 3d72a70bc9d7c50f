package model

import "time"

// MatchResult is the payload of a "match finalized" event.
// Empty MVP fields mean the match carries no such award.
type MatchResult struct {
	MatchID          string
	Season           string // empty selects the configured current season
	WinnerPlayerIDs  []string
	LoserPlayerIDs   []string
	MVPPlayerID      string // best performer overall
	LoserMVPPlayerID string // best performer on the losing side
	FinalizedAt      time.Time // zero means the time the match is processed
}

// Finalized reports whether both a winner and a loser team are assigned.
// Only finalized matches affect rankings.
func (m *MatchResult) Finalized() bool {
	return len(m.WinnerPlayerIDs) > 0 && len(m.LoserPlayerIDs) > 0
}
