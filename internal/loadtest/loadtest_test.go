package loadtest

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/rota/internal/adapters/http/api"
	"github.com/okian/rota/internal/adapters/roster"
	service "github.com/okian/rota/internal/app"
	"github.com/okian/rota/internal/domain/matching"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

var wednesday = time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC)

var reserved = map[model.DutyLabel]model.PositionID{
	matching.Emergency.Label: "ER",
	matching.Overflow.Label:  "NPE",
}

func TestGenerate(t *testing.T) {
	Convey("Given a roster shape", t, func() {
		shape := Shape{Teams: 3, Pairs: 3, Weeks: 2, Start: wednesday}
		gen := func(seed int64, s Shape) roster.Document {
			return Generate(rand.New(rand.NewSource(seed)), s)
		}

		Convey("When a document is generated", func() {
			doc := gen(1, shape)

			Convey("Then the term runs Monday to Friday of the last week", func() {
				So(doc.Term.Start, ShouldEqual, "2024-09-02")
				So(doc.Term.End, ShouldEqual, "2024-09-13")
			})

			Convey("Then every team holds its linked pairs", func() {
				So(doc.Teams, ShouldHaveLength, 3)
				So(doc.Teams[2].ID, ShouldEqual, "C")
				So(doc.Teams[0].Positions.Shared, ShouldHaveLength, 15)
				So(doc.Workers, ShouldHaveLength, 18)
				So(doc.Absences, ShouldBeEmpty)
			})

			Convey("Then it survives encoding and builds", func() {
				raw, err := yaml.Marshal(doc)
				So(err, ShouldBeNil)
				parsed, err := roster.Parse(raw)
				So(err, ShouldBeNil)
				in, err := parsed.Build(roster.WithReserved(reserved))
				So(err, ShouldBeNil)
				So(in.Teams, ShouldHaveLength, 3)
				So(in.Roster.Team("A"), ShouldHaveLength, 6)
			})
		})

		Convey("Then the same seed reproduces the same document", func() {
			So(cmp.Diff(gen(7, shape), gen(7, shape)), ShouldBeEmpty)
		})

		Convey("When every worker is absent once", func() {
			shape.AbsenceRate = 1
			doc := gen(3, shape)

			Convey("Then each absence is a weekday inside the term", func() {
				So(doc.Absences, ShouldHaveLength, len(doc.Workers))
				for _, a := range doc.Absences {
					day, err := time.Parse(time.DateOnly, a.From)
					So(err, ShouldBeNil)
					So(day.Weekday(), ShouldNotEqual, time.Saturday)
					So(day.Weekday(), ShouldNotEqual, time.Sunday)
					So(a.From >= doc.Term.Start && a.To <= doc.Term.End, ShouldBeTrue)
				}
				raw, err := yaml.Marshal(doc)
				So(err, ShouldBeNil)
				parsed, err := roster.Parse(raw)
				So(err, ShouldBeNil)
				_, err = parsed.Build(roster.WithReserved(reserved))
				So(err, ShouldBeNil)
			})
		})

		Convey("When the shape asks for too many teams", func() {
			doc := gen(1, Shape{Teams: 40, Pairs: 1, Start: wednesday})
			So(doc.Teams, ShouldHaveLength, MaxTeams)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a rota server", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithSeed(3),
			service.WithReserved(reserved),
			service.WithLogger(logger.Nop()),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, logger.Nop()).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := &Config{
			BaseURL:    srv.URL,
			Documents:  3,
			Teams:      2,
			Pairs:      2,
			Weeks:      1,
			Start:      wednesday,
			Seed:       1,
			Workers:    2,
			Timeout:    10 * time.Second,
			OutputFile: filepath.Join(t.TempDir(), "out", "roster.yaml"),
		}

		Convey("When the load test runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every document is planned and verified", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 3)
				So(stats.Succeeded, ShouldEqual, 3)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Verified, ShouldEqual, 3)

				_, statErr := os.Stat(cfg.OutputFile)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the server is gone", func() {
			srv.Close()
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestCheckRun(t *testing.T) {
	Convey("Given runs fetched back from the server", t, func() {
		Convey("Then a failed run is reported", func() {
			So(checkRun(runResponse{ID: "x", Status: "failed", Error: "boom"}, 1), ShouldNotBeNil)
		})
		Convey("Then a done run without a report is reported", func() {
			So(checkRun(runResponse{ID: "x", Status: "done"}, 1), ShouldNotBeNil)
		})
	})
}
