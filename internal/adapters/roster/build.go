package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/rota/internal/adapters/calendar"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/planner"
	"github.com/okian/rota/internal/domain/seating"
)

// Input is a validated document ready for planning.
type Input struct {
	Term       planner.Term
	Roster     *model.Roster
	Teams      []planner.Team
	Calendar   *calendar.Calendar
	Absences   *calendar.Absences
	Moratorium *calendar.Moratorium
}

// Team returns the team with the given id.
func (in *Input) Team(id model.TeamID) (planner.Team, bool) {
	for _, t := range in.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return planner.Team{}, false
}

// Option applies a configuration option to Build.
type Option func(*builder)

type builder struct {
	reserved map[model.DutyLabel]model.PositionID
}

// WithReserved sets the reserved positions for teams that list none.
// Perio teams never get defaults.
func WithReserved(r map[model.DutyLabel]model.PositionID) Option {
	return func(b *builder) { b.reserved = r }
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDocument, fmt.Sprintf(format, args...))
}

// Build validates the document and converts it into planner inputs.
func (d *Document) Build(opts ...Option) (*Input, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	term, err := d.term()
	if err != nil {
		return nil, err
	}
	cal, err := d.calendar(term.Start)
	if err != nil {
		return nil, err
	}
	teams, err := d.teams(b)
	if err != nil {
		return nil, err
	}
	roster, err := d.roster(teams)
	if err != nil {
		return nil, err
	}
	absences, err := d.absences(roster)
	if err != nil {
		return nil, err
	}
	windows, err := d.moratoria()
	if err != nil {
		return nil, err
	}
	return &Input{
		Term:       term,
		Roster:     roster,
		Teams:      teams,
		Calendar:   cal,
		Absences:   calendar.NewAbsences(absences),
		Moratorium: calendar.NewMoratorium(cal, windows),
	}, nil
}

func (d *Document) term() (planner.Term, error) {
	start, err := model.ParseDate(d.Term.Start)
	if err != nil {
		return planner.Term{}, invalid("term start: %v", err)
	}
	end, err := model.ParseDate(d.Term.End)
	if err != nil {
		return planner.Term{}, invalid("term end: %v", err)
	}
	t := planner.Term{Start: start, End: end}
	if err := t.Validate(); err != nil {
		return planner.Term{}, invalid("%v", err)
	}
	return t, nil
}

func (d *Document) calendar(start time.Time) (*calendar.Calendar, error) {
	first, err := model.ParsePriority(d.Calendar.FirstPriority)
	if err != nil {
		return nil, invalid("calendar: %v", err)
	}
	var opts []calendar.Option
	for date, prio := range d.Calendar.Weeks {
		t, err := model.ParseDate(date)
		if err != nil {
			return nil, invalid("calendar week: %v", err)
		}
		p, err := model.ParsePriority(prio)
		if err != nil {
			return nil, invalid("calendar week %s: %v", date, err)
		}
		opts = append(opts, calendar.WithWeek(t, p))
	}
	for _, day := range d.Calendar.Days {
		t, err := model.ParseDate(day.Date)
		if err != nil {
			return nil, invalid("calendar day: %v", err)
		}
		open, err := model.ParseOpenMode(day.Open)
		if err != nil {
			return nil, invalid("calendar day %s: %v", day.Date, err)
		}
		special, err := model.ParseSpecial(day.Special)
		if err != nil {
			return nil, invalid("calendar day %s: %v", day.Date, err)
		}
		opts = append(opts, calendar.WithDay(t, calendar.Day{Open: open, Special: special}))
	}
	return calendar.New(start, first, opts...), nil
}

func (d *Document) teams(b *builder) ([]planner.Team, error) {
	out := make([]planner.Team, 0, len(d.Teams))
	seen := make(map[model.TeamID]struct{}, len(d.Teams))
	for _, t := range d.Teams {
		id := model.TeamID(t.ID)
		if id == "" {
			return nil, invalid("team without id")
		}
		if _, dup := seen[id]; dup {
			return nil, invalid("duplicate team %s", id)
		}
		seen[id] = struct{}{}

		program, err := model.ParseProgram(t.Program)
		if err != nil {
			return nil, invalid("team %s: %v", id, err)
		}
		strategy, err := seating.ParseStrategy(t.Strategy)
		if err != nil {
			return nil, invalid("team %s: %v", id, err)
		}
		if strategy != seating.StrategyDefault && strategy != seating.StrategyPerio {
			return nil, invalid("team %s: strategy %q cannot be a team default", id, strategy)
		}
		if t.Capacity < 0 {
			return nil, invalid("team %s: negative capacity", id)
		}

		team := planner.Team{
			ID:             id,
			Program:        program,
			Capacity:       t.Capacity,
			Strategy:       strategy,
			OrphanRecovery: t.OrphanRecovery,
			Positions: planner.Positions{
				Shared:   positions(t.Positions.Shared),
				FridayPM: positions(t.Positions.FridayPM),
			},
			Reserved: make(map[model.DutyLabel]model.PositionID),
		}
		if len(t.Positions.Keyed) > 0 {
			team.Positions.Keyed = make(map[string][]model.PositionID, len(t.Positions.Keyed))
			for k, v := range t.Positions.Keyed {
				team.Positions.Keyed[k] = positions(v)
			}
		}
		for label, pos := range t.Reserved {
			team.Reserved[model.DutyLabel(label)] = model.PositionID(pos)
		}
		if len(t.Reserved) == 0 && !team.Perio() {
			for label, pos := range b.reserved {
				team.Reserved[label] = pos
			}
		}
		out = append(out, team)
	}
	return out, nil
}

func positions(in []string) []model.PositionID {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.PositionID, len(in))
	for i, p := range in {
		out[i] = model.PositionID(p)
	}
	return out
}

func (d *Document) roster(teams []planner.Team) (*model.Roster, error) {
	known := make(map[model.TeamID]struct{}, len(teams))
	for _, t := range teams {
		known[t.ID] = struct{}{}
	}

	workers := make([]model.Worker, 0, len(d.Workers))
	for _, w := range d.Workers {
		cohort, err := ParseCohort(w.Cohort)
		if err != nil {
			return nil, invalid("worker %s: %v", w.ID, err)
		}
		program, err := model.ParseProgram(w.Program)
		if err != nil {
			return nil, invalid("worker %s: %v", w.ID, err)
		}
		prio, err := model.ParsePriority(w.Priority)
		if err != nil {
			return nil, invalid("worker %s: %v", w.ID, err)
		}
		if _, ok := known[model.TeamID(w.Team)]; !ok {
			return nil, invalid("worker %s: unknown team %q", w.ID, w.Team)
		}
		workers = append(workers, model.Worker{
			ID:            model.WorkerID(w.ID),
			Name:          w.Name,
			Cohort:        cohort,
			Program:       program,
			Team:          model.TeamID(w.Team),
			Priority:      prio,
			Cluster:       w.Cluster,
			Pod:           w.Pod,
			Partner:       model.WorkerID(w.Partner),
			PrimaryLink:   model.WorkerID(w.PrimaryLink),
			SecondaryLink: model.WorkerID(w.SecondaryLink),
		})
	}
	r, err := model.NewRoster(workers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	for _, w := range workers {
		for _, link := range []model.WorkerID{w.Partner, w.PrimaryLink, w.SecondaryLink} {
			if !link.Present() {
				continue
			}
			other, ok := r.Lookup(link)
			if !ok {
				return nil, invalid("worker %s: unknown link %s", w.ID, link)
			}
			if other.Team != w.Team {
				return nil, invalid("worker %s: link %s is in team %s", w.ID, link, other.Team)
			}
		}
	}
	return r, nil
}

func (d *Document) absences(r *model.Roster) ([]calendar.Absence, error) {
	out := make([]calendar.Absence, 0, len(d.Absences))
	for _, a := range d.Absences {
		id := model.WorkerID(a.Worker)
		if _, ok := r.Lookup(id); !ok {
			return nil, invalid("absence: unknown worker %q", a.Worker)
		}
		from, err := model.ParseDate(a.From)
		if err != nil {
			return nil, invalid("absence %s: %v", id, err)
		}
		to, err := model.ParseDate(a.To)
		if err != nil {
			return nil, invalid("absence %s: %v", id, err)
		}
		ab := calendar.Absence{Worker: id, From: from, To: to}
		if a.Period != "" {
			p, err := model.ParsePeriod(a.Period)
			if err != nil {
				return nil, invalid("absence %s: %v", id, err)
			}
			ab.Period = &p
		}
		out = append(out, ab)
	}
	return out, nil
}

func (d *Document) moratoria() ([]calendar.Window, error) {
	out := make([]calendar.Window, 0, len(d.Moratoria))
	for _, m := range d.Moratoria {
		if m.Duty == "" {
			return nil, invalid("moratorium without duty")
		}
		cohort, err := ParseCohort(m.Cohort)
		if err != nil {
			return nil, invalid("moratorium %s: %v", m.Duty, err)
		}
		w := calendar.Window{
			Duty:            model.DutyLabel(m.Duty),
			Cohort:          cohort,
			ExemptLectureAM: m.ExemptLectureAM,
			ExemptFridayPM:  m.ExemptFridayPM,
		}
		for _, p := range m.Programs {
			program, err := model.ParseProgram(p)
			if err != nil {
				return nil, invalid("moratorium %s: %v", m.Duty, err)
			}
			w.Programs = append(w.Programs, program)
		}
		if m.From != "" {
			if w.From, err = model.ParseDate(m.From); err != nil {
				return nil, invalid("moratorium %s: %v", m.Duty, err)
			}
		}
		if m.To != "" {
			if w.To, err = model.ParseDate(m.To); err != nil {
				return nil, invalid("moratorium %s: %v", m.Duty, err)
			}
		}
		out = append(out, w)
	}
	return out, nil
}

// ParseCohort accepts "extra", "junior" and "senior" or their year numbers.
func ParseCohort(s string) (model.Cohort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extra", "2":
		return model.CohortExtra, nil
	case "junior", "3":
		return model.CohortJunior, nil
	case "senior", "4":
		return model.CohortSenior, nil
	default:
		return 0, fmt.Errorf("%w: cohort %q", model.ErrInvalidValue, s)
	}
}
