// Package model contains the scheduling domain types shared by every stage
// of the planning pipeline.
package model

import (
	"fmt"
	"strings"
)

// WorkerID identifies a worker. The zero value means "no worker".
type WorkerID string

// NoWorker is the absent worker reference.
const NoWorker WorkerID = ""

// Present reports whether id refers to a real worker.
func (id WorkerID) Present() bool { return id != NoWorker }

// TeamID identifies a team (a group practice owning its own position pool).
type TeamID string

// Cohort is the worker's year level.
type Cohort int

// Cohorts known to the engine. Extra-cohort workers only join a session
// through a secondary link.
const (
	CohortExtra  Cohort = 2
	CohortJunior Cohort = 3
	CohortSenior Cohort = 4
)

func (c Cohort) String() string {
	switch c {
	case CohortExtra:
		return "extra"
	case CohortJunior:
		return "junior"
	case CohortSenior:
		return "senior"
	default:
		return fmt.Sprintf("cohort-%d", int(c))
	}
}

// Valid reports whether c is one of the known cohorts.
func (c Cohort) Valid() bool {
	return c == CohortExtra || c == CohortJunior || c == CohortSenior
}

// Program distinguishes domestic and international tracks.
type Program int

const (
	ProgramDomestic Program = iota
	ProgramInternational
)

func (p Program) String() string {
	if p == ProgramInternational {
		return "international"
	}
	return "domestic"
}

// ParseProgram accepts "domestic" and "international" (case-insensitive).
func ParseProgram(s string) (Program, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "domestic":
		return ProgramDomestic, nil
	case "international":
		return ProgramInternational, nil
	default:
		return ProgramDomestic, fmt.Errorf("%w: program %q", ErrInvalidValue, s)
	}
}

// Priority is the UPPER/LOWER flag. On workers it marks their side of a
// pairing; on sessions it is the week's flag that decides which side covers.
type Priority int

const (
	PriorityUpper Priority = iota
	PriorityLower
)

func (p Priority) String() string {
	if p == PriorityLower {
		return "lower"
	}
	return "upper"
}

// Letter is the single-letter form used in position keys.
func (p Priority) Letter() string {
	if p == PriorityLower {
		return "L"
	}
	return "U"
}

// ParsePriority accepts "upper"/"u" and "lower"/"l" (case-insensitive).
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upper", "u":
		return PriorityUpper, nil
	case "lower", "l":
		return PriorityLower, nil
	default:
		return PriorityUpper, fmt.Errorf("%w: priority %q", ErrInvalidValue, s)
	}
}

// Worker is a person eligible for sessions and positions.
type Worker struct {
	ID       WorkerID
	Name     string
	Cohort   Cohort
	Program  Program
	Team     TeamID
	Priority Priority

	// Cluster and Pod locate the worker's home positions.
	Cluster string
	Pod     string

	Partner       WorkerID // same cohort
	PrimaryLink   WorkerID // adjacent cohort
	SecondaryLink WorkerID // further cohort, optional
}

// PoolKey is the lookup key for the worker's position queue, e.g. "12_U_3".
// Workers without a cluster or pod draw from the shared queue ("").
func (w Worker) PoolKey() string {
	if w.Cluster == "" && w.Pod == "" {
		return ""
	}
	return w.Cluster + "_" + w.Priority.Letter() + "_" + w.Pod
}
