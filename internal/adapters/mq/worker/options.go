package worker

import (
	"github.com/okian/ladder/pkg/logger"
)

type settings struct {
	name   string
	logger logger.Logger
}

// Option applies a configuration option to a worker or pool.
type Option func(*settings)

// WithName sets the worker name used for identification and logging. Pool
// workers get an index suffix.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
