package leaderboard

import "github.com/okian/ladder/pkg/logger"

// Option applies a configuration option to the Query.
type Option func(*Query)

// WithDefaultSeason sets the season used when a caller passes none.
func WithDefaultSeason(season string) Option {
	return func(q *Query) {
		q.defaultSeason = season
	}
}

// WithNameResolver sets the source of player display names.
func WithNameResolver(r NameResolver) Option {
	return func(q *Query) {
		if r != nil {
			q.names = r
		}
	}
}

// WithMaxPageSize caps the page size of Leaderboard.
func WithMaxPageSize(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.maxPageSize = n
		}
	}
}

// WithMaxLimit caps n in TopN.
func WithMaxLimit(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.maxLimit = n
		}
	}
}

// WithLogger sets the query logger.
func WithLogger(l logger.Logger) Option {
	return func(q *Query) {
		if l != nil {
			q.log = l
		}
	}
}
