// Package pairing partitions the workers available for a session into work
// units by walking their partner and link relationships.
package pairing

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// Constructor builds work units from a roster.
type Constructor struct {
	roster *model.Roster
	log    logger.Logger
}

// New creates a Constructor over roster.
func New(roster *model.Roster, opts ...Option) *Constructor {
	c := &Constructor{roster: roster, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build partitions available into units. Workers are resolved in the given
// order, so the result depends on it. Every available worker ends up in
// exactly one unit or Build fails.
func (c *Constructor) Build(ctx context.Context, seq *model.Sequence, session model.Session, available []model.WorkerID) ([]model.Unit, error) {
	b := &build{
		ctx:     ctx,
		c:       c,
		seq:     seq,
		session: session,
		pending: make(map[model.WorkerID]struct{}, len(available)),
		units:   make([]model.Unit, 0, len(available)),
	}
	for _, id := range available {
		if _, ok := c.roster.Lookup(id); !ok {
			return nil, fmt.Errorf("%w: worker %s not in roster", model.ErrInvalidValue, id)
		}
		b.pending[id] = struct{}{}
	}

	for _, id := range available {
		if !b.isPending(id) {
			continue
		}
		if err := b.resolve(c.roster.MustLookup(id)); err != nil {
			return nil, err
		}
	}

	if len(b.pending) > 0 {
		left := make([]string, 0, len(b.pending))
		for id := range b.pending {
			left = append(left, string(id))
		}
		slices.Sort(left)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedWorker, session, left)
	}
	return b.units, nil
}

// build is the state of one Build call.
type build struct {
	ctx     context.Context
	c       *Constructor
	seq     *model.Sequence
	session model.Session
	pending map[model.WorkerID]struct{}
	units   []model.Unit
}

func (b *build) isPending(id model.WorkerID) bool {
	if !id.Present() {
		return false
	}
	_, ok := b.pending[id]
	return ok
}

func (b *build) resolve(w model.Worker) error {
	// Extra-cohort workers only join through the worker that links to them.
	if w.Cohort == model.CohortExtra {
		return nil
	}
	switch {
	case b.isPending(w.SecondaryLink):
		return b.secondary(w)
	case b.isPending(w.PrimaryLink):
		return b.emit(w.ID, w.PrimaryLink, model.KindLinkedPair)
	case b.isPending(w.Partner):
		return b.partner(w)
	default:
		return b.cross(w)
	}
}

func (b *build) secondary(w model.Worker) error {
	extra := w.SecondaryLink
	switch w.Cohort {
	case model.CohortSenior:
		junior := w.PrimaryLink
		switch {
		case !junior.Present():
			b.note("senior has no primary link", w.ID)
		case b.isPending(junior):
			jw := b.c.roster.MustLookup(junior)
			if b.isPending(jw.Partner) {
				if err := b.emit(junior, jw.Partner, model.KindJuniorSolo); err != nil {
					return err
				}
			} else {
				b.note("junior partner missing, orphaning junior", junior)
				if err := b.emit(junior, model.NoWorker, model.KindOrphan); err != nil {
					return err
				}
			}
		default:
			b.note("primary link absent", w.ID)
		}
		return b.emit(w.ID, extra, model.KindSeniorPlusExtra)

	case model.CohortJunior:
		senior := w.PrimaryLink
		if !b.isPending(senior) {
			return b.emit(w.ID, extra, model.KindJuniorPlusExtra)
		}
		if err := b.emit(senior, extra, model.KindSeniorPlusExtra); err != nil {
			return err
		}
		if !b.isPending(w.Partner) {
			return fmt.Errorf("%w: %s (partner %q) in %s", ErrMissingPartner, w.ID, w.Partner, b.session)
		}
		return b.emit(w.ID, w.Partner, model.KindJuniorSolo)

	default:
		return fmt.Errorf("%w: %s has a secondary link but cohort %s", model.ErrInvalidValue, w.ID, w.Cohort)
	}
}

func (b *build) partner(w model.Worker) error {
	p := b.c.roster.MustLookup(w.Partner)
	if b.isPending(p.PrimaryLink) {
		if err := b.emit(p.ID, p.PrimaryLink, model.KindLinkedPair); err != nil {
			return err
		}
		return b.emitStray(w)
	}

	switch w.Cohort {
	case model.CohortJunior:
		return b.emit(w.ID, p.ID, model.KindJuniorSolo)
	case model.CohortSenior:
		return b.emit(w.ID, p.ID, model.KindSeniorSolo)
	default:
		return fmt.Errorf("%w: %s partnered with cohort %s", model.ErrInvalidValue, w.ID, w.Cohort)
	}
}

func (b *build) cross(w model.Worker) error {
	if !w.Partner.Present() {
		if !w.PrimaryLink.Present() {
			return b.emit(w.ID, model.NoWorker, model.KindOrphan)
		}
		// The link is away; its partner lost its own pairing too.
		if link, ok := b.c.roster.Lookup(w.PrimaryLink); ok && b.isPending(link.Partner) {
			b.note("upgraded to solo linked pair", link.Partner)
			if err := b.emit(link.Partner, model.NoWorker, model.KindLinkedPair); err != nil {
				return err
			}
		}
		return b.emit(w.ID, model.NoWorker, model.KindOrphan)
	}

	cross := model.NoWorker
	if p, ok := b.c.roster.Lookup(w.Partner); ok {
		cross = p.PrimaryLink
	}
	if !cross.Present() {
		return b.emit(w.ID, model.NoWorker, model.KindOrphan)
	}
	if b.isPending(cross) {
		if err := b.emit(cross, model.NoWorker, model.KindOrphan); err != nil {
			return err
		}
	}
	return b.emitStray(w)
}

// emitStray places a worker who lost its pairing: workers without a link of
// their own are upgraded to a solo linked pair, everyone else is orphaned.
func (b *build) emitStray(w model.Worker) error {
	if !w.PrimaryLink.Present() {
		b.note("upgraded to solo linked pair", w.ID)
		return b.emit(w.ID, model.NoWorker, model.KindLinkedPair)
	}
	return b.emit(w.ID, model.NoWorker, model.KindOrphan)
}

func (b *build) emit(x, y model.WorkerID, kind model.Kind) error {
	a, bb, err := b.orient(x, y, kind)
	if err != nil {
		return err
	}
	for _, id := range []model.WorkerID{a, bb} {
		if !id.Present() {
			continue
		}
		if !b.isPending(id) {
			return fmt.Errorf("%w: %s in %s", model.ErrAlreadyPaired, id, b.session)
		}
	}
	u, err := model.NewUnit(b.seq, a, bb, kind)
	if err != nil {
		return err
	}
	delete(b.pending, a)
	delete(b.pending, bb)
	b.units = append(b.units, u)
	metrics.RecordUnitBuilt(kind.String())
	return nil
}

// orient decides which worker sits on side A.
func (b *build) orient(x, y model.WorkerID, kind model.Kind) (model.WorkerID, model.WorkerID, error) {
	wx, _ := b.c.roster.Lookup(x)
	wy, _ := b.c.roster.Lookup(y)
	switch kind {
	case model.KindLinkedPair:
		switch {
		case wx.Cohort == model.CohortSenior:
			return x, y, nil
		case !y.Present():
			return solo(wx)
		case wy.Cohort == model.CohortSenior:
			return y, x, nil
		default:
			return x, y, nil
		}
	case model.KindSeniorSolo, model.KindJuniorSolo:
		if wx.Priority != model.PriorityUpper && wy.Priority == model.PriorityUpper {
			return y, x, nil
		}
		return x, y, nil
	case model.KindSplitSolo, model.KindOrphan:
		return solo(wx)
	case model.KindSeniorPlusExtra, model.KindJuniorPlusExtra:
		if wy.Cohort != model.CohortExtra {
			return "", "", fmt.Errorf("%w: %s carries %s of cohort %s", model.ErrInvalidValue, x, y, wy.Cohort)
		}
		return x, y, nil
	default:
		return "", "", fmt.Errorf("%w: kind %s", model.ErrInvalidValue, kind)
	}
}

func solo(w model.Worker) (model.WorkerID, model.WorkerID, error) {
	if w.Priority == model.PriorityUpper {
		return w.ID, model.NoWorker, nil
	}
	return model.NoWorker, w.ID, nil
}

func (b *build) note(msg string, id model.WorkerID) {
	b.c.log.Debug(b.ctx, msg,
		logger.String("worker", string(id)),
		logger.String("session", b.session.String()))
}
