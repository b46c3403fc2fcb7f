package service

import "errors"

// ErrNotStarted is returned by run methods before Start.
var ErrNotStarted = errors.New("plan service not started")
