package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("plan run not found")
	ErrRunFinished   = errors.New("plan run already finished")
	ErrInvalidStatus = errors.New("invalid plan run status")
)
