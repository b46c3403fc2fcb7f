package model

import "fmt"

// PositionID names a physical position within a team's session pool.
type PositionID string

// AssignmentState is the toggle state of an assignment.
type AssignmentState int

const (
	StateInitial AssignmentState = iota
	StateToggled
)

func (s AssignmentState) String() string {
	if s == StateToggled {
		return "toggled"
	}
	return "initial"
}

// Assignment binds a session, a unit and the worker currently providing it.
// The provider may be switched to the unit's other worker once.
type Assignment struct {
	session  Session
	position PositionID
	unit     Unit
	provider WorkerID
	state    AssignmentState
}

// NewAssignment creates an assignment in the initial state. provider must be
// one of the unit's workers.
func NewAssignment(session Session, position PositionID, unit Unit, provider WorkerID) (*Assignment, error) {
	if !unit.Has(provider) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrNotInUnit, provider, unit)
	}
	return &Assignment{session: session, position: position, unit: unit, provider: provider}, nil
}

func (a *Assignment) Session() Session       { return a.session }
func (a *Assignment) Position() PositionID   { return a.position }
func (a *Assignment) Unit() Unit             { return a.unit }
func (a *Assignment) Provider() WorkerID     { return a.provider }
func (a *Assignment) State() AssignmentState { return a.state }
func (a *Assignment) Toggled() bool          { return a.state == StateToggled }

// Toggle hands the assignment to the unit's other worker. It is the only
// transition out of StateInitial; calling it again is an invariant violation.
func (a *Assignment) Toggle() error {
	if a.state == StateToggled {
		return fmt.Errorf("%w: %s at %s", ErrAlreadyToggled, a.session, a.position)
	}
	other := a.unit.Other(a.provider)
	if !other.Present() {
		return fmt.Errorf("%w: %s", ErrNoCounterpart, a.unit)
	}
	a.provider = other
	a.state = StateToggled
	return nil
}
