package model

import (
	"fmt"
	"sync/atomic"
)

// Kind classifies a work unit.
type Kind int

const (
	KindLinkedPair      Kind = iota + 1 // senior + junior joined by a primary link
	KindSeniorSolo                      // two seniors working as partners
	KindJuniorSolo                      // two juniors working as partners
	KindSeniorPlusExtra                 // senior carrying an extra-cohort worker
	KindJuniorPlusExtra                 // junior carrying an extra-cohort worker
	KindSplitSolo                       // one side of a split unit
	KindMergedPair                      // two solos joined together
	KindOrphan                          // unpaired solo
)

var kindNames = map[Kind]string{
	KindLinkedPair:      "linked-pair",
	KindSeniorSolo:      "senior-solo",
	KindJuniorSolo:      "junior-solo",
	KindSeniorPlusExtra: "senior-plus-extra",
	KindJuniorPlusExtra: "junior-plus-extra",
	KindSplitSolo:       "split-solo",
	KindMergedPair:      "merged-pair",
	KindOrphan:          "unlabeled-orphan",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind-%d", int(k))
}

// AllKinds lists every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{
		KindLinkedPair, KindSeniorSolo, KindJuniorSolo, KindSeniorPlusExtra,
		KindJuniorPlusExtra, KindSplitSolo, KindMergedPair, KindOrphan,
	}
}

// IsSolo reports whether units of this kind are already down to one worker
// by construction (split or orphaned).
func (k Kind) IsSolo() bool { return k == KindSplitSolo || k == KindOrphan }

// IsPlusExtra reports whether the kind carries an extra-cohort worker.
func (k Kind) IsPlusExtra() bool { return k == KindSeniorPlusExtra || k == KindJuniorPlusExtra }

// DutyLabel marks a unit as covering a rotating duty for one session.
type DutyLabel string

// NoLabel is the unlabeled state.
const NoLabel DutyLabel = ""

// UnitID identifies a unit within one run.
type UnitID uint64

// Sequence hands out unit ids. One sequence per team computation keeps ids
// reproducible.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next id.
func (s *Sequence) Next() UnitID { return UnitID(s.n.Add(1)) }

// Unit is an immutable grouping of one or two workers. Derived units (split,
// merge, label) are new values that remember their parents.
type Unit struct {
	id      UnitID
	a, b    WorkerID
	kind    Kind
	label   DutyLabel
	parents []UnitID
}

// NewUnit builds a root unit. At least one side must be present and both
// sides must differ.
func NewUnit(seq *Sequence, a, b WorkerID, kind Kind) (Unit, error) {
	if !a.Present() && !b.Present() {
		return Unit{}, ErrEmptyUnit
	}
	if a == b {
		return Unit{}, fmt.Errorf("%w: %s", ErrAlreadyPaired, a)
	}
	if _, ok := kindNames[kind]; !ok {
		return Unit{}, fmt.Errorf("%w: kind %d", ErrInvalidValue, int(kind))
	}
	return Unit{id: seq.Next(), a: a, b: b, kind: kind}, nil
}

func (u Unit) ID() UnitID           { return u.id }
func (u Unit) A() WorkerID          { return u.a }
func (u Unit) B() WorkerID          { return u.b }
func (u Unit) Kind() Kind           { return u.kind }
func (u Unit) Label() DutyLabel     { return u.label }
func (u Unit) Labeled() bool        { return u.label != NoLabel }
func (u Unit) IsZero() bool         { return u.id == 0 }
func (u Unit) Parents() []UnitID    { return append([]UnitID(nil), u.parents...) }
func (u Unit) Has(id WorkerID) bool { return id.Present() && (u.a == id || u.b == id) }

// Workers returns the present workers, A first.
func (u Unit) Workers() []WorkerID {
	out := make([]WorkerID, 0, 2)
	if u.a.Present() {
		out = append(out, u.a)
	}
	if u.b.Present() {
		out = append(out, u.b)
	}
	return out
}

// Occupants is the number of present workers.
func (u Unit) Occupants() int { return len(u.Workers()) }

// Solo returns the single worker of a one-worker unit.
func (u Unit) Solo() (WorkerID, bool) {
	switch {
	case u.a.Present() && !u.b.Present():
		return u.a, true
	case u.b.Present() && !u.a.Present():
		return u.b, true
	default:
		return NoWorker, false
	}
}

// Other returns the worker on the other side of id, or NoWorker.
func (u Unit) Other(id WorkerID) WorkerID {
	switch id {
	case u.a:
		return u.b
	case u.b:
		return u.a
	default:
		return NoWorker
	}
}

// Splittable reports whether Split would succeed.
func (u Unit) Splittable() bool {
	return !u.kind.IsSolo() && u.a.Present() && u.b.Present()
}

// Split separates a two-worker unit into two split-solo units, keeping each
// worker on its side.
func (u Unit) Split(seq *Sequence) (Unit, Unit, error) {
	if !u.Splittable() {
		return Unit{}, Unit{}, fmt.Errorf("%w: unit %d (%s)", ErrNotSplittable, u.id, u.kind)
	}
	left := Unit{id: seq.Next(), a: u.a, kind: KindSplitSolo, parents: []UnitID{u.id}}
	right := Unit{id: seq.Next(), b: u.b, kind: KindSplitSolo, parents: []UnitID{u.id}}
	return left, right, nil
}

// Merge joins two solo units into a merged pair.
func (u Unit) Merge(seq *Sequence, other Unit) (Unit, error) {
	a, ok := u.Solo()
	if !ok || !u.kind.IsSolo() {
		return Unit{}, fmt.Errorf("%w: unit %d (%s)", ErrNotSolo, u.id, u.kind)
	}
	b, ok := other.Solo()
	if !ok || !other.kind.IsSolo() {
		return Unit{}, fmt.Errorf("%w: unit %d (%s)", ErrNotSolo, other.id, other.kind)
	}
	if a == b {
		return Unit{}, fmt.Errorf("%w: %s", ErrAlreadyPaired, a)
	}
	return Unit{id: seq.Next(), a: a, b: b, kind: KindMergedPair, parents: []UnitID{u.id, other.id}}, nil
}

// WithLabel returns a labeled copy. A unit is labeled at most once.
func (u Unit) WithLabel(seq *Sequence, label DutyLabel) (Unit, error) {
	if label == NoLabel {
		return Unit{}, fmt.Errorf("%w: empty label", ErrInvalidValue)
	}
	if u.Labeled() {
		return Unit{}, fmt.Errorf("%w: unit %d already carries %q", ErrAlreadyLabeled, u.id, u.label)
	}
	return Unit{id: seq.Next(), a: u.a, b: u.b, kind: u.kind, label: label, parents: []UnitID{u.id}}, nil
}

func (u Unit) String() string {
	return fmt.Sprintf("unit{%d %s %s|%s %s}", u.id, u.kind, u.a, u.b, u.label)
}
