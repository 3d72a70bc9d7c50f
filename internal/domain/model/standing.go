package model

// Standing is the ordering tuple of a record:
// TotalPoints desc, then WinRate desc, then MatchesWon desc.
// Two records with equal standings are tied and share a rank.
type Standing struct {
	Points  int
	WinRate float64
	Won     int
}

// Compare returns +1 if s ranks ahead of o, -1 if it ranks behind, 0 on a tie.
func (s Standing) Compare(o Standing) int {
	switch {
	case s.Points != o.Points:
		if s.Points > o.Points {
			return 1
		}
		return -1
	case s.WinRate != o.WinRate:
		if s.WinRate > o.WinRate {
			return 1
		}
		return -1
	case s.Won != o.Won:
		if s.Won > o.Won {
			return 1
		}
		return -1
	}
	return 0
}

// Outranks reports whether s is strictly ahead of o.
func (s Standing) Outranks(o Standing) bool {
	return s.Compare(o) > 0
}

// Before reports whether a should be listed before b. Ties are broken by
// player id ascending so pages are stable; the tie-break never affects rank.
func Before(a, b *Record) bool {
	if c := a.Standing().Compare(b.Standing()); c != 0 {
		return c > 0
	}
	return a.PlayerID < b.PlayerID
}
