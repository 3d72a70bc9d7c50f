// Package repository defines the ranking record store contract and its
// in-memory implementation.
package repository

import "time"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithIDGenerator overrides how new record ids are produced.
func WithIDGenerator(newID func() string) Option {
	return func(s *TreapStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}
