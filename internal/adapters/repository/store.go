// Package repository keeps run state: the cross-team duty roster and the
// plan runs served over HTTP. Both are in-memory and safe for concurrent use.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/report"
)

// Status is a plan run's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Run is a stored plan run. Report is set once the run is done.
type Run struct {
	ID       uuid.UUID
	Status   Status
	Created  time.Time
	Finished time.Time
	Error    string
	Report   *report.Report
}

// Store provides read/write access to plan runs.
type Store interface {
	// Create registers a pending run with a fresh id.
	Create(ctx context.Context) Run
	// Complete stores the report of a pending run.
	Complete(ctx context.Context, id uuid.UUID, r report.Report) error
	// Fail marks a pending run failed with cause.
	Fail(ctx context.Context, id uuid.UUID, cause error) error
	// Get returns the run. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id uuid.UUID) (Run, error)
	// Count returns the number of runs per status.
	Count(ctx context.Context) map[Status]int
}
