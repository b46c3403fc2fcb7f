package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/rota/internal/app"
	"github.com/okian/rota/internal/config"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/planner"
	"github.com/okian/rota/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		defer svc.Stop()

		Convey("When it is used before Start", func() {
			_, err := svc.Plan(context.Background(), nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then stats report the configuration", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueSize"], ShouldEqual, 8)
			})

			Convey("Then stopping twice is safe", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestRotation(t *testing.T) {
	Convey("Given configured rotation weeks", t, func() {
		Convey("When they are valid", func() {
			rot, err := service.Rotation([][]config.RotationEntry{
				{{Weekday: "mon", Period: "am", Teams: []string{"A", " B"}}},
				{{Weekday: "Wednesday", Period: "PM", Teams: []string{"C"}}},
			})

			Convey("Then each week becomes a table", func() {
				So(err, ShouldBeNil)
				So(rot, ShouldHaveLength, 2)
				So(rot[0][planner.RotationSlot{Weekday: time.Monday, Period: model.PeriodAM}], ShouldResemble, []model.TeamID{"A", "B"})
				So(rot[1][planner.RotationSlot{Weekday: time.Wednesday, Period: model.PeriodPM}], ShouldResemble, []model.TeamID{"C"})
			})
		})

		Convey("When a period is unknown", func() {
			_, err := service.Rotation([][]config.RotationEntry{{{Weekday: "mon", Period: "noon"}}})
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given the default configuration", t, func() {
		opts, err := service.FromConfig(config.New(context.Background()))
		So(err, ShouldBeNil)
		So(opts, ShouldNotBeEmpty)
		So(service.New(opts...), ShouldNotBeNil)
	})
}
