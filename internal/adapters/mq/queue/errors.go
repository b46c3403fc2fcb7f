package queue

import "errors"

// ErrQueueFull is returned by producers that could not enqueue every job.
var ErrQueueFull = errors.New("job queue full")
