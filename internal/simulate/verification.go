package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

// ErrMismatch is wrapped around every verification failure.
var ErrMismatch = errors.New("ranking mismatch")

func standingOf(e Entry) model.Standing {
	return model.Standing{Points: e.TotalPoints, WinRate: e.WinRate, Won: e.MatchesWon}
}

// compareEntry checks a reported entry against the expected tally.
func compareEntry(got Entry, want Tally) error {
	if got.TotalPoints != want.Points || got.MatchesWon != want.Won || got.MatchesPlayed != want.Played {
		return fmt.Errorf("%w: player %s has points=%d won=%d played=%d, want points=%d won=%d played=%d",
			ErrMismatch, got.PlayerID, got.TotalPoints, got.MatchesWon, got.MatchesPlayed,
			want.Points, want.Won, want.Played)
	}
	if got.WinRate != model.WinRate(want.Won, want.Played) {
		return fmt.Errorf("%w: player %s win rate %.2f, want %.2f",
			ErrMismatch, got.PlayerID, got.WinRate, model.WinRate(want.Won, want.Played))
	}
	return nil
}

// verifyLeaderboard checks that top is ordered by standing and carries
// competition ranks: tied entries share a rank, the next one skips ahead.
func verifyLeaderboard(top []Entry) error {
	for i, e := range top {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first entry %s has rank %d", ErrMismatch, e.PlayerID, e.Rank)
			}
			continue
		}
		prev := top[i-1]
		switch standingOf(prev).Compare(standingOf(e)) {
		case -1:
			return fmt.Errorf("%w: %s at position %d outranks %s above it", ErrMismatch, e.PlayerID, i+1, prev.PlayerID)
		case 0:
			if e.Rank != prev.Rank {
				return fmt.Errorf("%w: tied %s and %s have ranks %d and %d", ErrMismatch, prev.PlayerID, e.PlayerID, prev.Rank, e.Rank)
			}
		default:
			if e.Rank != i+1 {
				return fmt.Errorf("%w: %s at position %d has rank %d", ErrMismatch, e.PlayerID, i+1, e.Rank)
			}
		}
	}
	return nil
}

// verifyTopAgainstTally checks that the leader's standing is the best
// standing in the tally.
func verifyTopAgainstTally(top []Entry, tallies map[string]Tally) error {
	if len(top) == 0 {
		if len(tallies) == 0 {
			return nil
		}
		return fmt.Errorf("%w: empty leaderboard", ErrMismatch)
	}
	leader := standingOf(top[0])
	for id, t := range tallies {
		if t.Standing().Compare(leader) > 0 {
			return fmt.Errorf("%w: %s should outrank leader %s", ErrMismatch, id, top[0].PlayerID)
		}
	}
	return nil
}
