package model

import (
	"fmt"
)

// Roster is the per-run worker registry. It is built once from the input and
// passed explicitly to every stage; lookups never go through global state.
type Roster struct {
	order []WorkerID
	byID  map[WorkerID]Worker
}

// NewRoster indexes workers, keeping their input order. IDs must be present
// and unique.
func NewRoster(workers []Worker) (*Roster, error) {
	r := &Roster{
		order: make([]WorkerID, 0, len(workers)),
		byID:  make(map[WorkerID]Worker, len(workers)),
	}
	for _, w := range workers {
		if !w.ID.Present() {
			return nil, fmt.Errorf("%w: worker without id", ErrInvalidValue)
		}
		if _, dup := r.byID[w.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWorker, w.ID)
		}
		r.order = append(r.order, w.ID)
		r.byID[w.ID] = w
	}
	return r, nil
}

// Lookup returns the worker with the given id.
func (r *Roster) Lookup(id WorkerID) (Worker, bool) {
	if !id.Present() {
		return Worker{}, false
	}
	w, ok := r.byID[id]
	return w, ok
}

// MustLookup is Lookup for ids already known to be in the roster.
func (r *Roster) MustLookup(id WorkerID) Worker {
	w, ok := r.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("worker %q not in roster", id))
	}
	return w
}

// Len returns the number of workers.
func (r *Roster) Len() int { return len(r.order) }

// Workers returns all workers in input order.
func (r *Roster) Workers() []Worker {
	out := make([]Worker, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Team returns the team's workers in input order.
func (r *Roster) Team(team TeamID) []Worker {
	var out []Worker
	for _, id := range r.order {
		if w := r.byID[id]; w.Team == team {
			out = append(out, w)
		}
	}
	return out
}

// Teams returns the distinct teams in order of first appearance.
func (r *Roster) Teams() []TeamID {
	seen := make(map[TeamID]struct{})
	var out []TeamID
	for _, id := range r.order {
		t := r.byID[id].Team
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
