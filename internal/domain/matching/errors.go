package matching

import "errors"

var (
	// ErrEmptyLadder is returned when a duty has no modes to try.
	ErrEmptyLadder = errors.New("duty has an empty mode ladder")
	// ErrDuplicateSession is returned when the same session is offered twice.
	ErrDuplicateSession = errors.New("session offered twice")
)
