package roster

import "errors"

// Sentinel kinds for roster document errors.
var (
	ErrLoadDocument    = errors.New("failed to load roster document")
	ErrInvalidDocument = errors.New("invalid roster document")
)
