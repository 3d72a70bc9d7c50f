// Package scoring holds the point rules that turn match outcomes into
// ranking deltas.
package scoring

import (
	"github.com/okian/ladder/internal/domain/model"
)

// Default point rules.
const (
	DefaultWinPoints     = 3
	DefaultLossPoints    = 0
	DefaultMVPBonus      = 1
	DefaultLoserMVPBonus = 1
)

// Award names a bonus kind granted after a match.
type Award string

// Bonus kinds.
const (
	AwardMVP      Award = "mvp"
	AwardLoserMVP Award = "loser_mvp"
)

// Rules is the point table. The zero value awards nothing; use NewRules.
type Rules struct {
	WinPoints     int
	LossPoints    int
	MVPBonus      int
	LoserMVPBonus int
}

// Option applies a configuration option to Rules.
type Option func(*Rules)

// WithWinPoints sets the points for a won match. Negative values are ignored.
func WithWinPoints(points int) Option {
	return func(r *Rules) {
		if points >= 0 {
			r.WinPoints = points
		}
	}
}

// WithLossPoints sets the points for a lost match. Negative values are ignored.
func WithLossPoints(points int) Option {
	return func(r *Rules) {
		if points >= 0 {
			r.LossPoints = points
		}
	}
}

// WithMVPBonus sets the bonus for the overall best performer.
func WithMVPBonus(points int) Option {
	return func(r *Rules) {
		if points >= 0 {
			r.MVPBonus = points
		}
	}
}

// WithLoserMVPBonus sets the bonus for the best performer on the losing side.
func WithLoserMVPBonus(points int) Option {
	return func(r *Rules) {
		if points >= 0 {
			r.LoserMVPBonus = points
		}
	}
}

// NewRules returns the default point table with opts applied.
func NewRules(opts ...Option) Rules {
	r := Rules{
		WinPoints:     DefaultWinPoints,
		LossPoints:    DefaultLossPoints,
		MVPBonus:      DefaultMVPBonus,
		LoserMVPBonus: DefaultLoserMVPBonus,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// MatchDelta returns the change one finished match makes to a record.
func (r Rules) MatchDelta(won bool) model.Delta {
	if won {
		return model.Delta{Points: r.WinPoints, Played: 1, Won: 1}
	}
	return model.Delta{Points: r.LossPoints, Played: 1}
}

// BonusFor returns the points granted for award, or 0 for an unknown kind.
func (r Rules) BonusFor(award Award) int {
	switch award {
	case AwardMVP:
		return r.MVPBonus
	case AwardLoserMVP:
		return r.LoserMVPBonus
	default:
		return 0
	}
}
