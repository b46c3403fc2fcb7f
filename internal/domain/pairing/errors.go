package pairing

import "errors"

var (
	// ErrUnresolvedWorker is returned when resolution ends with workers left
	// outside every unit.
	ErrUnresolvedWorker = errors.New("worker left unpaired")
	// ErrMissingPartner is returned when a junior's senior and extra are
	// present but its own partner is not.
	ErrMissingPartner = errors.New("partner missing for secondary split")
)
