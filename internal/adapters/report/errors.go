package report

import "errors"

// ErrUnknownFormat is returned for output formats other than yaml and json.
var ErrUnknownFormat = errors.New("unknown report format")
