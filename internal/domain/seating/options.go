package seating

import "github.com/okian/rota/pkg/logger"

// Option applies a configuration option to the Allocator.
type Option func(*Allocator)

// WithLogger sets the allocator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithStrategy registers or replaces a strategy in the dispatch table.
func WithStrategy(name StrategyName, s Strategy) Option {
	return func(a *Allocator) {
		if s != nil {
			a.strategies[name] = s
		}
	}
}
