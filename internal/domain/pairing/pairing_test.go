package pairing_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/pairing"
	. "github.com/smartystreets/goconvey/convey"
)

type shape struct {
	kind model.Kind
	a, b model.WorkerID
}

func shapes(units []model.Unit) []shape {
	out := make([]shape, 0, len(units))
	for _, u := range units {
		out = append(out, shape{kind: u.Kind(), a: u.A(), b: u.B()})
	}
	return out
}

func mustRoster(ws ...model.Worker) *model.Roster {
	r, err := model.NewRoster(ws)
	if err != nil {
		panic(err)
	}
	return r
}

// quad returns two linked pairs whose seniors and juniors are partners.
func quad(n int) []model.Worker {
	s1 := model.WorkerID(fmt.Sprintf("s%d", n))
	s2 := model.WorkerID(fmt.Sprintf("s%d", n+1))
	j1 := model.WorkerID(fmt.Sprintf("j%d", n))
	j2 := model.WorkerID(fmt.Sprintf("j%d", n+1))
	return []model.Worker{
		{ID: s1, Cohort: model.CohortSenior, Priority: model.PriorityUpper, PrimaryLink: j1, Partner: s2},
		{ID: j1, Cohort: model.CohortJunior, Priority: model.PriorityLower, PrimaryLink: s1, Partner: j2},
		{ID: s2, Cohort: model.CohortSenior, Priority: model.PriorityLower, PrimaryLink: j2, Partner: s1},
		{ID: j2, Cohort: model.CohortJunior, Priority: model.PriorityUpper, PrimaryLink: s2, Partner: j1},
	}
}

var session = model.NewSession(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), model.PeriodAM, "A", model.PriorityUpper)

func TestConstructorBuild(t *testing.T) {
	Convey("Given a constructor", t, func() {
		ctx := context.Background()
		seq := &model.Sequence{}

		Convey("When every worker of two linked pairs is present", func() {
			c := pairing.New(mustRoster(quad(1)...))
			units, err := c.Build(ctx, seq, session, []model.WorkerID{"s1", "j1", "s2", "j2"})

			Convey("Then two linked pairs are built with the senior on A", func() {
				So(err, ShouldBeNil)
				So(shapes(units), ShouldResemble, []shape{
					{model.KindLinkedPair, "s1", "j1"},
					{model.KindLinkedPair, "s2", "j2"},
				})
			})
		})

		Convey("When a junior is away", func() {
			c := pairing.New(mustRoster(quad(1)...))
			units, err := c.Build(ctx, seq, session, []model.WorkerID{"s1", "s2", "j2"})

			Convey("Then the partner's pair stays linked and the senior is orphaned", func() {
				So(err, ShouldBeNil)
				So(shapes(units), ShouldResemble, []shape{
					{model.KindLinkedPair, "s2", "j2"},
					{model.KindOrphan, "s1", model.NoWorker},
				})
			})
		})

		Convey("When a senior carries an extra through a secondary link", func() {
			ws := quad(1)
			ws[0].SecondaryLink = "e1"
			ws = append(ws, model.Worker{ID: "e1", Cohort: model.CohortExtra, Priority: model.PriorityUpper})
			c := pairing.New(mustRoster(ws...))
			units, err := c.Build(ctx, seq, session, []model.WorkerID{"s1", "j1", "s2", "j2", "e1"})

			Convey("Then the juniors pair up and the remaining senior is orphaned", func() {
				So(err, ShouldBeNil)
				So(shapes(units), ShouldResemble, []shape{
					{model.KindJuniorSolo, "j2", "j1"},
					{model.KindSeniorPlusExtra, "s1", "e1"},
					{model.KindOrphan, model.NoWorker, "s2"},
				})
			})
		})

		Convey("When a junior's secondary split has no partner", func() {
			ws := quad(1)
			ws[1].SecondaryLink = "e1"
			ws = append(ws, model.Worker{ID: "e1", Cohort: model.CohortExtra})
			c := pairing.New(mustRoster(ws...))
			_, err := c.Build(ctx, seq, session, []model.WorkerID{"j1", "s1", "e1"})

			Convey("Then the build fails", func() {
				So(errors.Is(err, pairing.ErrMissingPartner), ShouldBeTrue)
			})
		})

		Convey("When a junior with an extra has no senior around", func() {
			ws := quad(1)
			ws[1].SecondaryLink = "e1"
			ws = append(ws, model.Worker{ID: "e1", Cohort: model.CohortExtra})
			c := pairing.New(mustRoster(ws...))
			units, err := c.Build(ctx, seq, session, []model.WorkerID{"j1", "e1", "j2"})

			Convey("Then the junior carries the extra", func() {
				So(err, ShouldBeNil)
				So(shapes(units)[0], ShouldResemble, shape{model.KindJuniorPlusExtra, "j1", "e1"})
				So(shapes(units)[1], ShouldResemble, shape{model.KindOrphan, "j2", model.NoWorker})
			})
		})

		Convey("When a worker without a partner loses its link", func() {
			c := pairing.New(mustRoster(
				model.Worker{ID: "x", Cohort: model.CohortJunior, Priority: model.PriorityUpper, PrimaryLink: "s3"},
				model.Worker{ID: "s3", Cohort: model.CohortSenior, PrimaryLink: "x", Partner: "s4"},
				model.Worker{ID: "s4", Cohort: model.CohortSenior, Priority: model.PriorityLower, Partner: "s3"},
			))
			units, err := c.Build(ctx, seq, session, []model.WorkerID{"x", "s4"})

			Convey("Then the cross is upgraded to a solo linked pair", func() {
				So(err, ShouldBeNil)
				So(shapes(units), ShouldResemble, []shape{
					{model.KindLinkedPair, "s4", model.NoWorker},
					{model.KindOrphan, "x", model.NoWorker},
				})
			})
		})

		Convey("When an extra is present without its driver", func() {
			ws := quad(1)
			ws[0].SecondaryLink = "e1"
			ws = append(ws, model.Worker{ID: "e1", Cohort: model.CohortExtra})
			c := pairing.New(mustRoster(ws...))
			_, err := c.Build(ctx, seq, session, []model.WorkerID{"e1", "j1"})

			Convey("Then the extra is reported as unresolved", func() {
				So(errors.Is(err, pairing.ErrUnresolvedWorker), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "e1")
			})
		})

		Convey("When a worker is not in the roster", func() {
			c := pairing.New(mustRoster(quad(1)...))
			_, err := c.Build(ctx, seq, session, []model.WorkerID{"ghost"})
			So(errors.Is(err, model.ErrInvalidValue), ShouldBeTrue)
		})
	})
}

func TestConstructorPartition(t *testing.T) {
	Convey("Given random subsets of a consistent roster", t, func() {
		var ws []model.Worker
		for n := 1; n <= 20; n += 2 {
			ws = append(ws, quad(n)...)
		}
		c := pairing.New(mustRoster(ws...))
		rng := rand.New(rand.NewSource(42))

		Convey("Then every available worker lands in exactly one unit", func() {
			for i := 0; i < 200; i++ {
				var avail []model.WorkerID
				for _, w := range ws {
					if rng.Intn(3) > 0 {
						avail = append(avail, w.ID)
					}
				}
				rng.Shuffle(len(avail), func(a, b int) { avail[a], avail[b] = avail[b], avail[a] })

				units, err := c.Build(context.Background(), &model.Sequence{}, session, avail)
				So(err, ShouldBeNil)

				seen := make(map[model.WorkerID]int)
				total := 0
				for _, u := range units {
					total += u.Occupants()
					for _, id := range u.Workers() {
						seen[id]++
					}
				}
				So(total, ShouldEqual, len(avail))
				for _, id := range avail {
					So(seen[id], ShouldEqual, 1)
				}
			}
		})
	})
}
