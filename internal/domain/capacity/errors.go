package capacity

import "errors"

var (
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrUnknownScenario = errors.New("unknown capacity scenario")
)
