package capacity

import (
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRatio sets the ratio guard. Values outside (0, 1) are ignored.
func WithRatio(ratio float64) Option {
	return func(e *Engine) {
		if ratio > 0 && ratio < 1 {
			e.ratio = ratio
		}
	}
}

// WithHalvingKinds sets the unit kinds halved first when a session is below
// capacity.
func WithHalvingKinds(kinds ...model.Kind) Option {
	return func(e *Engine) {
		if len(kinds) > 0 {
			e.halving = append([]model.Kind(nil), kinds...)
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
