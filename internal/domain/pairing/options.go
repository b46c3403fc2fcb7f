package pairing

import "github.com/okian/rota/pkg/logger"

// Option applies a configuration option to the Constructor.
type Option func(*Constructor)

// WithLogger sets the logger used for resolution notes (upgrades, missing
// partners).
func WithLogger(l logger.Logger) Option {
	return func(c *Constructor) {
		if l != nil {
			c.log = l
		}
	}
}
