package fairness

import "github.com/okian/rota/pkg/logger"

// Option applies a configuration option to the Rebalancer.
type Option func(*Rebalancer)

// WithLogger sets the rebalancer logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Rebalancer) {
		if l != nil {
			r.log = l
		}
	}
}
