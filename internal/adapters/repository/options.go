package repository

import "time"

// Option applies a configuration option to the PlanStore.
type Option func(*PlanStore)

// WithClock sets the time source for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *PlanStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetention caps the number of finished runs kept. Older finished runs
// are dropped first. Zero keeps everything.
func WithRetention(n int) Option {
	return func(s *PlanStore) {
		if n >= 0 {
			s.retain = n
		}
	}
}
