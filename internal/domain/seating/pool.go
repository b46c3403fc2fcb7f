package seating

import (
	"slices"

	"github.com/okian/rota/internal/domain/model"
)

// Pool is an arena of position queues for one session. Keyed queues serve
// workers whose pool key matches; every other key draws from the shared
// queue. Positions are consumed without replacement. Reserved positions are
// held per duty label and never drawn from a queue.
type Pool struct {
	shared   []model.PositionID
	keyed    map[string][]model.PositionID
	reserved map[model.DutyLabel]model.PositionID
	order    []model.PositionID
}

// NewPool copies the given tables into a fresh arena. Reserved positions are
// removed from the queues.
func NewPool(shared []model.PositionID, keyed map[string][]model.PositionID, reserved map[model.DutyLabel]model.PositionID) *Pool {
	held := make(map[model.PositionID]struct{}, len(reserved))
	p := &Pool{
		keyed:    make(map[string][]model.PositionID, len(keyed)),
		reserved: make(map[model.DutyLabel]model.PositionID, len(reserved)),
	}
	for label, pos := range reserved {
		p.reserved[label] = pos
		held[pos] = struct{}{}
	}
	seen := make(map[model.PositionID]struct{})
	keep := func(in []model.PositionID) []model.PositionID {
		out := make([]model.PositionID, 0, len(in))
		for _, pos := range in {
			if _, ok := held[pos]; ok {
				continue
			}
			out = append(out, pos)
			if _, ok := seen[pos]; !ok {
				seen[pos] = struct{}{}
				p.order = append(p.order, pos)
			}
		}
		return out
	}

	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		p.keyed[k] = keep(keyed[k])
	}
	p.shared = keep(shared)
	return p
}

// Next draws the next position for key. A key with its own queue never falls
// back to the shared queue.
func (p *Pool) Next(key string) (model.PositionID, bool) {
	if q, ok := p.keyed[key]; ok {
		if len(q) == 0 {
			return "", false
		}
		p.keyed[key] = q[1:]
		return q[0], true
	}
	if len(p.shared) == 0 {
		return "", false
	}
	pos := p.shared[0]
	p.shared = p.shared[1:]
	return pos, true
}

// Reserved returns the position held for label.
func (p *Pool) Reserved(label model.DutyLabel) (model.PositionID, bool) {
	pos, ok := p.reserved[label]
	return pos, ok
}

// Positions lists every general position in first-seen order (keyed queues by
// sorted key, then the shared queue).
func (p *Pool) Positions() []model.PositionID {
	return slices.Clone(p.order)
}

// Remaining counts the positions still queued.
func (p *Pool) Remaining() int {
	n := len(p.shared)
	for _, q := range p.keyed {
		n += len(q)
	}
	return n
}

// Unclaimed builds a shared-only pool of the general positions not in seats.
func Unclaimed(p *Pool, seats map[model.PositionID]*model.Assignment) *Pool {
	var free []model.PositionID
	for _, pos := range p.order {
		if _, taken := seats[pos]; !taken {
			free = append(free, pos)
		}
	}
	return NewPool(free, nil, p.reserved)
}
