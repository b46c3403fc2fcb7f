package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			opts := []Option{
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5 * time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
			}

			Convey("Then they should be valid functions", func() {
				for _, opt := range opts {
					So(opt, ShouldNotBeNil)
				}
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "rota")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.enabled.Load(), ShouldBeTrue)
				So(time.Duration(manager.refreshInterval.Load()), ShouldEqual, 10*time.Second)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test", "version": "1.0"}),
				WithPrometheusRegistry(registry),
			)
			manager.seats.Add(3)

			Convey("Then metric names carry the namespace and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_seats_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording engine metrics", func() {
			before := counterValue(globalManager.splits.WithLabelValues("below"))
			RecordSplits("below", 2)
			RecordSplits("below", 0)
			after := counterValue(globalManager.splits.WithLabelValues("below"))

			Convey("Then counters move by the recorded amount", func() {
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When the stored run gauge is set twice", func() {
			UpdateStoredRuns("done", 3)
			UpdateStoredRuns("done", 5)

			Convey("Then it holds the last value", func() {
				So(gaugeValue(globalManager.storedRuns.WithLabelValues("done")), ShouldEqual, 5)
			})
		})

		Convey("When recording every helper", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordUnitBuilt("linked-pair")
					RecordScenario("sufficient")
					RecordAwaiting(1)
					RecordDutyMatch("emergency", "default")
					RecordDutyUnmatched("overflow", 1)
					RecordMatchingPass("emergency", "full")
					RecordBestEffortEntry("emergency")
					RecordSeats(4)
					RecordOrphan("pool-exhausted")
					RecordToggles(1)
					RecordPlan("ok")
					RecordTeamPlanLatency(12)
					AddTeamsInFlight(1)
					AddTeamsInFlight(-1)
					UpdateQueueSize(1)
					UpdateQueueCapacity(10)
					UpdateQueueUtilization(0.1)
					RecordQueueEnqueue()
					RecordQueueReject("closed")
					UpdateWorkerActiveCount(2)
					RecordWorkerJob()
					RecordWorkerError()
					RecordHTTPRequest("plans", "POST", "201")
					RecordHTTPRequestDuration("plans", "POST", "201", 3)
					RecordErrorByComponent("planner", "fatal")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(8)
					RecordSystemGCPauseTime(0.4)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestMetricsEnabled(t *testing.T) {
	Convey("Given a manager built disabled", t, func() {
		manager := NewManager(
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithMetricsEnabled(false),
			WithRefreshInterval(2*time.Second),
			WithRefreshInterval(0),
		)
		So(manager.enabled.Load(), ShouldBeFalse)
		So(time.Duration(manager.refreshInterval.Load()), ShouldEqual, 2*time.Second)
	})

	Convey("Given the global helpers switched off", t, func() {
		SetEnabled(false)
		defer SetEnabled(true)

		seats := counterValue(globalManager.seats)
		plans := counterValue(globalManager.plans.WithLabelValues("ok"))
		UpdateStoredRuns("failed", 1)
		before := gaugeValue(globalManager.storedRuns.WithLabelValues("failed"))

		RecordSeats(3)
		RecordPlan("ok")
		UpdateStoredRuns("failed", 9)

		Convey("Then nothing is recorded", func() {
			So(Enabled(), ShouldBeFalse)
			So(counterValue(globalManager.seats), ShouldEqual, seats)
			So(counterValue(globalManager.plans.WithLabelValues("ok")), ShouldEqual, plans)
			So(gaugeValue(globalManager.storedRuns.WithLabelValues("failed")), ShouldEqual, before)
		})

		Convey("Then switching back on records again", func() {
			SetEnabled(true)
			RecordSeats(3)
			So(counterValue(globalManager.seats)-seats, ShouldEqual, 3)
		})
	})

	Convey("Given the global refresh interval", t, func() {
		defer SetRefreshInterval(RefreshInterval())

		SetRefreshInterval(250 * time.Millisecond)
		SetRefreshInterval(-time.Second)
		So(RefreshInterval(), ShouldEqual, 250*time.Millisecond)
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a temp directory", t, func() {
		path := filepath.Join(t.TempDir(), "rota.prom")
		RecordSeats(1)

		Convey("When the registry is written", func() {
			err := WriteTextfile(path)

			Convey("Then the file holds the exposition format", func() {
				So(err, ShouldBeNil)
				raw, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(raw), "rota_engine_seats_total"), ShouldBeTrue)
			})
		})

		Convey("When the target directory does not exist", func() {
			err := WriteTextfile(filepath.Join(path, "missing", "x.prom"))

			Convey("Then a wrapped error is returned", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), ErrWriteTextfile.Error()), ShouldBeTrue)
			})
		})
	})
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return -1
	}
	return m.GetGauge().GetValue()
}
