package matchresult

import (
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithSeason sets the season used when a match carries none.
func WithSeason(season string) Option {
	return func(p *Processor) {
		p.season = season
	}
}

// WithGuard sets the record of applied match ids.
func WithGuard(g dedupe.Deduper) Option {
	return func(p *Processor) {
		p.guard = g
	}
}

// WithReapply makes every finalize event count again, even for a match id
// that was already applied.
func WithReapply(reapply bool) Option {
	return func(p *Processor) {
		p.reapply = reapply
	}
}

// WithFanout bounds how many player updates of one phase run at once.
func WithFanout(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.fanout = n
		}
	}
}

// WithLogger sets the processor logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}
