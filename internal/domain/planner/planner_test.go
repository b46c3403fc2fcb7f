package planner_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/rota/internal/domain/matching"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/planner"
	"github.com/okian/rota/internal/domain/seating"
	. "github.com/smartystreets/goconvey/convey"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

type calendar struct {
	open     map[time.Time]model.OpenMode
	priority model.Priority
}

func (c calendar) OpenMode(d time.Time) model.OpenMode {
	if m, ok := c.open[model.Day(d)]; ok {
		return m
	}
	return model.OpenBoth
}
func (c calendar) Priority(time.Time) model.Priority { return c.priority }
func (c calendar) Special(time.Time) model.Special   { return model.SpecialNone }

type dutyKey struct {
	duty model.DutyLabel
	key  model.SessionKey
}

type duties struct {
	mu     sync.Mutex
	teams  sync.Map
	m      map[dutyKey]model.WorkerID
	forget bool
}

func newDuties() *duties { return &duties{m: make(map[dutyKey]model.WorkerID)} }

func (d *duties) Lock(team model.TeamID) func() {
	l, _ := d.teams.LoadOrStore(team, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (d *duties) Put(duty model.DutyLabel, s model.Session, w model.WorkerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[dutyKey{duty, s.Key()}] = w
}

func (d *duties) Get(duty model.DutyLabel, s model.Session) (model.WorkerID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.forget {
		return model.NoWorker, false
	}
	w, ok := d.m[dutyKey{duty, s.Key()}]
	return w, ok
}

type absent map[model.WorkerID]time.Time

func (a absent) Available(w model.WorkerID, s model.Session) bool {
	d, ok := a[w]
	return !ok || !d.Equal(s.Date)
}

// fourPairs is team A: s<i>/j<i> linked, partners s0-s1, s2-s3, j0-j1, j2-j3.
func fourPairs() *model.Roster {
	var ws []model.Worker
	for i := 0; i < 4; i++ {
		s := model.WorkerID(fmt.Sprintf("s%d", i))
		j := model.WorkerID(fmt.Sprintf("j%d", i))
		ps := model.WorkerID(fmt.Sprintf("s%d", i^1))
		pj := model.WorkerID(fmt.Sprintf("j%d", i^1))
		ws = append(ws,
			model.Worker{ID: s, Team: "A", Cohort: model.CohortSenior, Priority: model.PriorityUpper, PrimaryLink: j, Partner: ps},
			model.Worker{ID: j, Team: "A", Cohort: model.CohortJunior, Priority: model.PriorityLower, PrimaryLink: s, Partner: pj},
		)
	}
	r, err := model.NewRoster(ws)
	if err != nil {
		panic(err)
	}
	return r
}

func positions(prefix string, n int) []model.PositionID {
	out := make([]model.PositionID, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.PositionID(fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}

func teamA() planner.Team {
	return planner.Team{
		ID:       "A",
		Capacity: 6,
		Positions: planner.Positions{
			Shared:   positions("p", 10),
			FridayPM: positions("f", 6),
		},
		Reserved: map[model.DutyLabel]model.PositionID{
			matching.Emergency.Label: "ER",
			matching.Overflow.Label:  "NPE",
		},
	}
}

func rotation() planner.Rotation {
	return planner.Rotation{{
		{Weekday: time.Monday, Period: model.PeriodAM}:    {"A"},
		{Weekday: time.Wednesday, Period: model.PeriodPM}: {"A", "B"},
	}}
}

var week = planner.Term{Start: monday, End: monday.AddDate(0, 0, 4)}

type seatRow struct {
	Session  string
	Position model.PositionID
	Provider model.WorkerID
	Label    model.DutyLabel
}

func seatRows(plan planner.TeamPlan) []seatRow {
	var out []seatRow
	for _, sp := range plan.Sessions {
		for _, a := range sp.Seating.Assignments() {
			out = append(out, seatRow{sp.Session.String(), a.Position(), a.Provider(), a.Unit().Label()})
		}
	}
	return out
}

func TestPlanTeam(t *testing.T) {
	Convey("Given a team of four linked pairs over one week", t, func() {
		ctx := context.Background()
		roster := fourPairs()
		cal := calendar{priority: model.PriorityUpper}

		Convey("When the team is planned", func() {
			d := newDuties()
			p := planner.New(roster, cal, d, planner.WithSeed(7), planner.WithRotation(rotation()))
			plan, err := p.PlanTeam(ctx, teamA(), week)

			Convey("Then every weekday half-day is planned", func() {
				So(err, ShouldBeNil)
				So(plan.Team, ShouldEqual, model.TeamID("A"))
				So(plan.Sessions, ShouldHaveLength, 10)
			})

			Convey("Then both duties cover all of their sessions", func() {
				So(plan.Duties, ShouldHaveLength, 2)
				So(plan.Duties[0].Duty, ShouldEqual, matching.Emergency.Label)
				So(plan.Duties[0].Matches, ShouldHaveLength, 2)
				So(plan.Duties[0].Unmatched, ShouldBeEmpty)
				So(plan.Duties[1].Duty, ShouldEqual, matching.Overflow.Label)
				So(plan.Duties[1].Matches, ShouldHaveLength, 10)
				So(plan.Duties[1].Unmatched, ShouldBeEmpty)
			})

			Convey("Then every unit is seated or orphaned and duty units sit on their reserved position", func() {
				for _, sp := range plan.Sessions {
					So(len(sp.Seating.Seats)+len(sp.Seating.Orphans), ShouldEqual, len(sp.Units))
					for pos, a := range sp.Seating.Seats {
						switch a.Unit().Label() {
						case matching.Emergency.Label:
							So(pos, ShouldEqual, model.PositionID("ER"))
						case matching.Overflow.Label:
							So(pos, ShouldEqual, model.PositionID("NPE"))
						}
						if a.Unit().Labeled() {
							w, ok := d.Get(a.Unit().Label(), sp.Session)
							So(ok, ShouldBeTrue)
							So(a.Unit().Has(w), ShouldBeTrue)
						}
					}
				}
			})

			Convey("Then Friday afternoon draws from its own table", func() {
				fri := plan.Sessions[9]
				So(fri.Session.Date.Weekday(), ShouldEqual, time.Friday)
				So(fri.Session.Period, ShouldEqual, model.PeriodPM)
				So(fri.Strategy, ShouldEqual, seating.StrategyFridayAfternoon)
				So(fri.Splits, ShouldEqual, 0)
				friday := positions("f", 6)
				for pos := range fri.Seating.Seats {
					So(pos == "NPE" || slices.Contains(friday, pos), ShouldBeTrue)
				}
			})

			Convey("Then sessions below capacity split a linked pair", func() {
				mon := plan.Sessions[0]
				So(mon.Strategy, ShouldEqual, seating.StrategyDefault)
				So(mon.Splits, ShouldEqual, 1)
				So(mon.Units, ShouldHaveLength, 5)
			})
		})

		Convey("When the same seed plans the team twice", func() {
			run := func() planner.TeamPlan {
				p := planner.New(roster, cal, newDuties(), planner.WithSeed(11), planner.WithRotation(rotation()))
				plan, err := p.PlanTeam(ctx, teamA(), week)
				So(err, ShouldBeNil)
				return plan
			}
			a, b := run(), run()

			Convey("Then the seating is identical", func() {
				So(cmp.Diff(seatRows(a), seatRows(b)), ShouldBeEmpty)
				So(a.Fairness.Toggles(), ShouldEqual, b.Fairness.Toggles())
			})
		})

		Convey("When the duty roster loses the matched workers", func() {
			d := newDuties()
			d.forget = true
			_, err := planner.New(roster, cal, d, planner.WithRotation(rotation())).PlanTeam(ctx, teamA(), week)
			So(errors.Is(err, planner.ErrMissingDutyProvider), ShouldBeTrue)
		})

		Convey("When the team holds no reserved positions", func() {
			team := teamA()
			team.Reserved = nil
			plan, err := planner.New(roster, cal, newDuties()).PlanTeam(ctx, team, week)
			So(err, ShouldBeNil)
			So(plan.Duties, ShouldBeEmpty)
		})

		Convey("When the term or the team is invalid", func() {
			p := planner.New(roster, cal, newDuties())
			_, err := p.PlanTeam(ctx, teamA(), planner.Term{Start: monday, End: monday.AddDate(0, 0, -1)})
			So(errors.Is(err, planner.ErrInvalidTerm), ShouldBeTrue)
			_, err = p.PlanTeam(ctx, planner.Team{ID: "Z"}, week)
			So(errors.Is(err, planner.ErrUnknownTeam), ShouldBeTrue)
		})

		Convey("When a day is closed and another open mornings only", func() {
			c := calendar{priority: model.PriorityUpper, open: map[time.Time]model.OpenMode{
				monday:                  model.OpenClosed,
				monday.AddDate(0, 0, 1): model.OpenAMOnly,
			}}
			plan, err := planner.New(roster, c, newDuties()).PlanTeam(ctx, teamA(), week)
			So(err, ShouldBeNil)
			So(plan.Sessions, ShouldHaveLength, 7)
			So(plan.Sessions[0].Session.Period, ShouldEqual, model.PeriodAM)
			So(plan.Sessions[1].Session.Date.Weekday(), ShouldEqual, time.Wednesday)
		})
	})
}

func TestPlanTeamUnits(t *testing.T) {
	Convey("Given a senior carrying an extra and a linked junior", t, func() {
		ctx := context.Background()
		roster, err := model.NewRoster([]model.Worker{
			{ID: "s0", Team: "B", Cohort: model.CohortSenior, Priority: model.PriorityUpper, PrimaryLink: "j0", SecondaryLink: "x"},
			{ID: "j0", Team: "B", Cohort: model.CohortJunior, Priority: model.PriorityLower, PrimaryLink: "s0"},
			{ID: "x", Team: "B", Cohort: model.CohortExtra},
		})
		So(err, ShouldBeNil)
		team := planner.Team{ID: "B", Capacity: 6, Positions: planner.Positions{Shared: positions("p", 6)}}
		cal := calendar{priority: model.PriorityUpper, open: map[time.Time]model.OpenMode{}}
		for i := 1; i < 5; i++ {
			cal.open[monday.AddDate(0, 0, i)] = model.OpenClosed
		}
		term := planner.Term{Start: monday, End: monday.AddDate(0, 0, 1)}

		Convey("When the senior is away", func() {
			p := planner.New(roster, cal, newDuties(), planner.WithAvailability(absent{"s0": monday}))
			plan, err := p.PlanTeam(ctx, team, term)

			Convey("Then the extra stays home and the lone junior waits for its half-day", func() {
				So(err, ShouldBeNil)
				So(plan.Sessions, ShouldHaveLength, 2)
				am, pm := plan.Sessions[0], plan.Sessions[1]
				for _, sp := range plan.Sessions {
					for _, u := range append(sp.Units, sp.Awaiting...) {
						So(u.Has("x"), ShouldBeFalse)
					}
				}
				So(am.Awaiting, ShouldHaveLength, 1)
				So(am.Awaiting[0].Has("j0"), ShouldBeTrue)
				So(am.Units, ShouldBeEmpty)
				So(pm.Awaiting, ShouldBeEmpty)
				So(pm.Units, ShouldHaveLength, 1)
				So(pm.Seating.Seats, ShouldHaveLength, 1)
			})
		})

		Convey("When everybody is in", func() {
			plan, err := planner.New(roster, cal, newDuties()).PlanTeam(ctx, team, term)

			Convey("Then the senior carries the extra", func() {
				So(err, ShouldBeNil)
				found := false
				for _, u := range plan.Sessions[0].Units {
					if u.Kind() == model.KindSeniorPlusExtra {
						found = u.Has("s0") && u.Has("x")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})

	Convey("Given a perio team", t, func() {
		ctx := context.Background()
		roster, err := model.NewRoster([]model.Worker{
			{ID: "a", Team: "P", Cohort: model.CohortSenior, Priority: model.PriorityUpper},
			{ID: "b", Team: "P", Cohort: model.CohortSenior, Priority: model.PriorityUpper},
			{ID: "c", Team: "P", Cohort: model.CohortSenior, Priority: model.PriorityLower},
		})
		So(err, ShouldBeNil)
		team := planner.Team{
			ID:        "P",
			Capacity:  5,
			Strategy:  seating.StrategyPerio,
			Positions: planner.Positions{Shared: positions("c", 5)},
			Reserved:  map[model.DutyLabel]model.PositionID{matching.Overflow.Label: "NPE"},
		}
		cal := calendar{priority: model.PriorityUpper, open: map[time.Time]model.OpenMode{monday: model.OpenAMOnly}}
		term := planner.Term{Start: monday, End: monday}

		plan, err := planner.New(roster, cal, newDuties()).PlanTeam(ctx, team, term)

		Convey("Then only the workers of the week's side are seated, each alone", func() {
			So(err, ShouldBeNil)
			So(plan.Duties, ShouldBeEmpty)
			So(plan.Sessions, ShouldHaveLength, 1)
			sp := plan.Sessions[0]
			So(sp.Strategy, ShouldEqual, seating.StrategyPerio)
			So(sp.Seating.Seats, ShouldHaveLength, 2)
			for _, a := range sp.Seating.Seats {
				So(a.Unit().Kind(), ShouldEqual, model.KindOrphan)
				So(a.Provider(), ShouldNotEqual, model.WorkerID("c"))
			}
		})
	})
}

func TestOrphanRecovery(t *testing.T) {
	Convey("Given workers whose keyed queue holds a single position", t, func() {
		ctx := context.Background()
		var ws []model.Worker
		for i := 0; i < 3; i++ {
			ws = append(ws, model.Worker{
				ID: model.WorkerID(fmt.Sprintf("s%d", i)), Team: "C", Cohort: model.CohortSenior,
				Priority: model.PriorityUpper, Cluster: "1", Pod: "a",
			})
		}
		roster, err := model.NewRoster(ws)
		So(err, ShouldBeNil)
		team := planner.Team{
			ID:       "C",
			Capacity: 3,
			Positions: planner.Positions{
				Shared: positions("s", 3),
				Keyed:  map[string][]model.PositionID{"1_U_a": {"k1"}},
			},
		}
		cal := calendar{priority: model.PriorityUpper, open: map[time.Time]model.OpenMode{monday: model.OpenAMOnly}}
		term := planner.Term{Start: monday, End: monday}

		Convey("When recovery is off", func() {
			plan, err := planner.New(roster, cal, newDuties()).PlanTeam(ctx, team, term)

			Convey("Then the overflow from the keyed queue is orphaned", func() {
				So(err, ShouldBeNil)
				sp := plan.Sessions[0]
				So(sp.Seating.Seats, ShouldHaveLength, 1)
				So(sp.Seating.Orphans, ShouldHaveLength, 2)
				So(sp.Seating.Orphans[0].Reason, ShouldEqual, seating.ReasonPoolExhausted)
			})
		})

		Convey("When recovery is on", func() {
			team.OrphanRecovery = true
			plan, err := planner.New(roster, cal, newDuties()).PlanTeam(ctx, team, term)

			Convey("Then the orphans take the unclaimed shared positions", func() {
				So(err, ShouldBeNil)
				sp := plan.Sessions[0]
				So(sp.Seating.Seats, ShouldHaveLength, 3)
				So(sp.Seating.Orphans, ShouldBeEmpty)
				So(sp.Seating.Seats, ShouldContainKey, model.PositionID("k1"))
			})
		})
	})
}

func TestRotation(t *testing.T) {
	Convey("Given a two-week rotation", t, func() {
		r := planner.Rotation{
			{{Weekday: time.Monday, Period: model.PeriodAM}: {"A"}},
			{{Weekday: time.Monday, Period: model.PeriodAM}: {"B"}},
		}
		at := func(weeks int, team model.TeamID) model.Session {
			return model.NewSession(monday.AddDate(0, 0, 7*weeks), model.PeriodAM, team, model.PriorityUpper)
		}

		Convey("Then the tables alternate by calendar week from the term start", func() {
			start := monday.AddDate(0, 0, 2)
			So(r.OnDuty(start, at(0, "A")), ShouldBeTrue)
			So(r.OnDuty(start, at(0, "B")), ShouldBeFalse)
			So(r.OnDuty(start, at(1, "B")), ShouldBeTrue)
			So(r.OnDuty(start, at(2, "A")), ShouldBeTrue)
			So(r.OnDuty(start, model.NewSession(monday, model.PeriodPM, "A", model.PriorityUpper)), ShouldBeFalse)
		})

		Convey("Then an empty rotation puts nobody on duty", func() {
			So(planner.Rotation(nil).OnDuty(monday, at(0, "A")), ShouldBeFalse)
		})
	})
}
