package simulate

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Match is the wire shape of POST /matches.
type Match struct {
	MatchID          string   `json:"match_id"`
	Season           string   `json:"season,omitempty"`
	WinnerPlayerIDs  []string `json:"winner_player_ids"`
	LoserPlayerIDs   []string `json:"loser_player_ids"`
	MVPPlayerID      string   `json:"mvp_player_id,omitempty"`
	LoserMVPPlayerID string   `json:"loser_mvp_player_id,omitempty"`
	FinalizedAt      string   `json:"finalized_at"`
}

// PlayerID names the i-th simulated player.
func PlayerID(i int) string {
	return fmt.Sprintf("sim-player-%04d", i)
}

// Generate builds cfg.Matches random matches. Each match draws two disjoint
// teams from the player pool and picks an MVP from each side.
func Generate(cfg *Config) []Match {
	pool := make([]string, cfg.Players)
	for i := range pool {
		pool[i] = PlayerID(i)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	out := make([]Match, cfg.Matches)
	for i := range out {
		shuffle(pool)
		winners := append([]string(nil), pool[:cfg.TeamSize]...)
		losers := append([]string(nil), pool[cfg.TeamSize:2*cfg.TeamSize]...)
		out[i] = Match{
			MatchID:          uuid.NewString(),
			Season:           cfg.Season,
			WinnerPlayerIDs:  winners,
			LoserPlayerIDs:   losers,
			MVPPlayerID:      winners[randInt(len(winners))],
			LoserMVPPlayerID: losers[randInt(len(losers))],
			FinalizedAt:      now,
		}
	}
	return out
}

// shuffle is a Fisher-Yates shuffle driven by crypto/rand.
func shuffle(s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := randInt(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
