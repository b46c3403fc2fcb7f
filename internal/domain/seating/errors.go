package seating

import "errors"

var (
	ErrReservedCollision  = errors.New("reserved position already taken")
	ErrNoReservedPosition = errors.New("no reserved position for duty")
	ErrPositionCollision  = errors.New("position assigned twice")
	ErrStrategyMismatch   = errors.New("strategy does not apply to session")
	ErrUnexpectedKind     = errors.New("unexpected unit kind for strategy")
	ErrUnknownStrategy    = errors.New("unknown seating strategy")
)
