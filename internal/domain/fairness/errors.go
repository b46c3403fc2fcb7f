package fairness

import "errors"

// ErrMixedTeams is returned when one call receives assignments of several teams.
var ErrMixedTeams = errors.New("assignments span more than one team")
