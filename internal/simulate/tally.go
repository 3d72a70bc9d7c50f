package simulate

import (
	"sort"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
)

// Tally is the expected record of one player after a run.
type Tally struct {
	Points int
	Won    int
	Played int
}

// Standing returns the ordering tuple the service ranks t by.
func (t Tally) Standing() model.Standing {
	return model.Standing{Points: t.Points, WinRate: model.WinRate(t.Won, t.Played), Won: t.Won}
}

// Expect replays matches under rules and returns the tally per player.
// Ids repeated within one side count once.
func Expect(matches []Match, rules scoring.Rules) map[string]Tally {
	out := make(map[string]Tally)
	apply := func(id string, d model.Delta) {
		t := out[id]
		t.Points += d.Points
		t.Played += d.Played
		t.Won += d.Won
		out[id] = t
	}
	for _, m := range matches {
		for _, id := range dedupe(m.WinnerPlayerIDs) {
			apply(id, rules.MatchDelta(true))
		}
		for _, id := range dedupe(m.LoserPlayerIDs) {
			apply(id, rules.MatchDelta(false))
		}
		if m.MVPPlayerID != "" && rules.MVPBonus != 0 {
			apply(m.MVPPlayerID, model.Delta{Points: rules.MVPBonus})
		}
		if m.LoserMVPPlayerID != "" && rules.LoserMVPBonus != 0 {
			apply(m.LoserMVPPlayerID, model.Delta{Points: rules.LoserMVPBonus})
		}
	}
	return out
}

// Players returns the tallied player ids in a stable order.
func Players(tallies map[string]Tally) []string {
	ids := make([]string, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
