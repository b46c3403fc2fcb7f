package planner

import (
	"github.com/okian/rota/internal/domain/matching"
	"github.com/okian/rota/pkg/logger"
)

// DefaultCapacity is used for teams that do not set their own.
const DefaultCapacity = 13

// Option applies a configuration option to the Planner.
type Option func(*Planner)

// WithSeed sets the run seed every team stream derives from.
func WithSeed(seed int64) Option {
	return func(p *Planner) { p.seed = seed }
}

// WithCapacity sets the default session capacity.
func WithCapacity(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithRatio sets the capacity ratio guard.
func WithRatio(ratio float64) Option {
	return func(p *Planner) { p.ratio = ratio }
}

// WithRetries sets the matching retry budget.
func WithRetries(n int) Option {
	return func(p *Planner) { p.retries = n }
}

// WithRotation sets the emergency rotation table.
func WithRotation(r Rotation) Option {
	return func(p *Planner) { p.rotation = r }
}

// WithAvailability sets the absence source. Everyone is available by default.
func WithAvailability(a Availability) Option {
	return func(p *Planner) {
		if a != nil {
			p.avail = a
		}
	}
}

// WithMoratorium sets the duty moratorium.
func WithMoratorium(m matching.Moratorium) Option {
	return func(p *Planner) { p.moratorium = m }
}

// WithLogger sets the planner logger. It is passed down to every stage.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}
