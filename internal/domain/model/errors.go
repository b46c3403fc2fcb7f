package model

import "errors"

// Sentinel errors for domain invariants. Everything except ErrInvalidValue
// signals corrupted upstream data and aborts a run.
var (
	ErrInvalidValue    = errors.New("invalid value")
	ErrDuplicateWorker = errors.New("duplicate worker")
	ErrEmptyUnit       = errors.New("unit has no workers")
	ErrAlreadyPaired   = errors.New("worker already paired")
	ErrNotSplittable   = errors.New("unit cannot be split")
	ErrNotSolo         = errors.New("unit is not solo")
	ErrAlreadyLabeled  = errors.New("unit already labeled")
	ErrNotInUnit       = errors.New("worker not in unit")
	ErrAlreadyToggled  = errors.New("assignment already toggled")
	ErrNoCounterpart   = errors.New("unit has no counterpart to toggle to")
)
