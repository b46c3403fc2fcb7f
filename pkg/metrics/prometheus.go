// Package metrics provides Prometheus metrics for the rota planning engine.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pairing and capacity
	unitsBuilt *prometheus.CounterVec
	scenarios  *prometheus.CounterVec
	splits     *prometheus.CounterVec
	awaiting   prometheus.Counter

	// Duty matching
	dutyMatches       *prometheus.CounterVec
	dutyUnmatched     *prometheus.CounterVec
	matchingPasses    *prometheus.CounterVec
	bestEffortEntries *prometheus.CounterVec

	// Seating and rebalancing
	seats   prometheus.Counter
	orphans *prometheus.CounterVec
	toggles prometheus.Counter

	// Runs
	plans           *prometheus.CounterVec
	teamPlanLatency prometheus.Histogram
	teamsInFlight   prometheus.Gauge

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueRejects     *prometheus.CounterVec
	queueUtilization prometheus.Gauge

	// Workers
	workerActiveCount prometheus.Gauge
	workerJobs        prometheus.Counter
	workerErrors      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Process
	storedRuns          *prometheus.GaugeVec
	systemMemoryUsage   prometheus.Gauge
	systemGoroutines    prometheus.Gauge
	systemGCPauseTimeMs prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rota",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.unitsBuilt = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("units_built_total"),
		Help: "Work units produced by the pairing constructor, by kind",
	}, []string{"kind"})

	m.scenarios = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("capacity_scenarios_total"),
		Help: "Capacity scenarios selected per session",
	}, []string{"scenario"})

	m.splits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("unit_splits_total"),
		Help: "Units split by the capacity engine, by scenario",
	}, []string{"scenario"})

	m.awaiting = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("awaiting_orphans_total"),
		Help: "Orphan units set aside because they do not provide in the session's period",
	})

	m.dutyMatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("duty_matches_total"),
		Help: "Sessions matched to a duty worker, by duty and selection mode",
	}, []string{"duty", "mode"})

	m.dutyUnmatched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("duty_unmatched_total"),
		Help: "Sessions left without a duty worker after best-effort mode stalled",
	}, []string{"duty"})

	m.matchingPasses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("matching_passes_total"),
		Help: "Matching passes by duty and outcome (full, partial, none)",
	}, []string{"duty", "outcome"})

	m.bestEffortEntries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("best_effort_entries_total"),
		Help: "Times the matching scheduler entered best-effort mode",
	}, []string{"duty"})

	m.seats = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("seats_total"),
		Help: "Units seated at a position",
	})

	m.orphans = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("orphans_total"),
		Help: "Units the position allocator could not seat, by reason",
	}, []string{"reason"})

	m.toggles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("assignment_toggles_total"),
		Help: "Assignments toggled by the fairness rebalancer",
	})

	m.plans = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("plans_total"),
		Help: "Planning runs by status",
	}, []string{"status"})

	m.teamPlanLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("team_plan_duration_milliseconds"),
		Help:    "Time to plan one team for a term",
		Buckets: m.histogramBuckets,
	})

	m.teamsInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("teams_in_flight"),
		Help: "Teams currently being planned",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_size"),
		Help: "Team jobs waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_capacity"),
		Help: "Maximum number of queued team jobs",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_enqueued_total"),
		Help: "Team jobs accepted by the queue",
	})

	m.queueRejects = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_rejected_total"),
		Help: "Team jobs rejected by the queue, by reason",
	}, []string{"reason"})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_utilization_ratio"),
		Help: "Queue fill ratio (0.0 to 1.0)",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("worker_active_count"),
		Help: "Planner workers running",
	})

	m.workerJobs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("worker_jobs_total"),
		Help: "Team jobs completed by planner workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("worker_errors_total"),
		Help: "Team jobs that failed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("http_requests_total"),
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("errors_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.storedRuns = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("stored_runs"),
		Help: "Plan runs held by the run store, by status",
	}, []string{"status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("memory_alloc_bytes"),
		Help: "Heap bytes allocated",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("goroutines"),
		Help: "Goroutines running",
	})

	m.systemGCPauseTimeMs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("gc_pause_avg_milliseconds"),
		Help: "Average GC pause since start",
	})
}

// RecordUnitBuilt counts a unit produced by the pairing constructor.
func RecordUnitBuilt(kind string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.unitsBuilt.WithLabelValues(kind).Inc()
}

// RecordScenario counts a capacity scenario selection.
func RecordScenario(scenario string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.scenarios.WithLabelValues(scenario).Inc()
}

// RecordSplits adds n capacity splits for a scenario.
func RecordSplits(scenario string, n int) {
	if !globalManager.enabled.Load() {
		return
	}
	if n <= 0 {
		return
	}
	globalManager.splits.WithLabelValues(scenario).Add(float64(n))
}

// RecordAwaiting adds n awaiting orphans.
func RecordAwaiting(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	if n <= 0 {
		return
	}
	globalManager.awaiting.Add(float64(n))
}

// RecordDutyMatch counts one matched duty session.
func RecordDutyMatch(duty, mode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.dutyMatches.WithLabelValues(duty, mode).Inc()
}

// RecordDutyUnmatched adds n sessions left without a duty worker.
func RecordDutyUnmatched(duty string, n int) {
	if !globalManager.enabled.Load() {
		return
	}
	if n <= 0 {
		return
	}
	globalManager.dutyUnmatched.WithLabelValues(duty).Add(float64(n))
}

// RecordMatchingPass counts a matching pass outcome.
func RecordMatchingPass(duty, outcome string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.matchingPasses.WithLabelValues(duty, outcome).Inc()
}

// RecordBestEffortEntry counts an entry into best-effort mode.
func RecordBestEffortEntry(duty string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.bestEffortEntries.WithLabelValues(duty).Inc()
}

// RecordSeats adds n seated units.
func RecordSeats(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	if n <= 0 {
		return
	}
	globalManager.seats.Add(float64(n))
}

// RecordOrphan counts one unseated unit.
func RecordOrphan(reason string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.orphans.WithLabelValues(reason).Inc()
}

// RecordToggles adds n rebalancer toggles.
func RecordToggles(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	if n <= 0 {
		return
	}
	globalManager.toggles.Add(float64(n))
}

// RecordPlan counts a finished planning run.
func RecordPlan(status string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.plans.WithLabelValues(status).Inc()
}

// RecordTeamPlanLatency records the time spent planning one team.
func RecordTeamPlanLatency(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.teamPlanLatency.Observe(latencyMs)
}

// AddTeamsInFlight moves the in-flight gauge by delta.
func AddTeamsInFlight(delta int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.teamsInFlight.Add(float64(delta))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueEnqueues.Inc()
}

// RecordQueueReject counts a rejected enqueue.
func RecordQueueReject(reason string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueRejects.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerJob counts a completed team job.
func RecordWorkerJob() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerJobs.Inc()
}

// RecordWorkerError counts a failed team job.
func RecordWorkerError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateStoredRuns sets the number of stored runs with status.
func UpdateStoredRuns(status string, n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.storedRuns.WithLabelValues(status).Set(float64(n))
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGoroutines.Set(float64(n))
}

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGCPauseTimeMs.Set(ms)
}

// SetEnabled turns the Record and Update helpers on or off.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// Enabled reports whether the helpers record anything.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// SetRefreshInterval sets how often periodic gauges are refreshed.
// Non-positive values are ignored.
func SetRefreshInterval(interval time.Duration) {
	if interval > 0 {
		globalManager.refreshInterval.Store(int64(interval))
	}
}

// RefreshInterval returns how often periodic gauges are refreshed.
func RefreshInterval() time.Duration {
	return time.Duration(globalManager.refreshInterval.Load())
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in the text exposition format, for batch
// runs scraped through a node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
