package planner

import "errors"

var (
	// ErrMissingDutyProvider is returned when a duty-labeled unit has no
	// worker recorded in the duty roster.
	ErrMissingDutyProvider = errors.New("duty provider missing from duty roster")
	// ErrInvalidTerm is returned for a term that ends before it starts.
	ErrInvalidTerm = errors.New("invalid term")
	// ErrUnknownTeam is returned for a team without workers in the roster.
	ErrUnknownTeam = errors.New("team has no workers")
)
