package matching

import "github.com/okian/rota/pkg/logger"

// DefaultRetries is the number of times the ladder restarts before best
// effort.
const DefaultRetries = 1

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithRetries sets the full-ladder retry budget. Negative values are ignored.
func WithRetries(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithMoratorium sets the predicate that blocks workers from a session.
func WithMoratorium(m Moratorium) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.moratorium = m
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
