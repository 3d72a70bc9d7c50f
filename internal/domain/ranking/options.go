package ranking

import (
	"time"

	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPlayerDirectory sets the collaborator used to verify players before
// any write. Without one every player is accepted.
func WithPlayerDirectory(d PlayerDirectory) Option {
	return func(e *Engine) {
		e.players = d
	}
}

// WithRules sets the point table.
func WithRules(r scoring.Rules) Option {
	return func(e *Engine) {
		e.rules = r
	}
}

// WithStrictBonus rejects negative bonus points with ErrInvalidBonus.
func WithStrictBonus(strict bool) Option {
	return func(e *Engine) {
		e.strictBonus = strict
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
