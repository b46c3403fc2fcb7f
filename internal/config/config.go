// Package config defines the planner configuration and its loading hooks.
//
// Conventions:
// - New(ctx) returns a Config holding every default.
// - Load layers a YAML file and ROTA_ environment variables on top.
// - Errors returned from Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"runtime"
	"time"
)

// Run modes.
const (
	ModePlan  = "plan"
	ModeServe = "serve"
)

// Output formats for plan reports.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Mode is "plan" for a one-shot batch run or "serve" for the HTTP API.
	Mode string `koanf:"mode"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Input is the roster document path for plan mode.
	Input string `koanf:"input"`
	// Output is the report path; empty writes to stdout.
	Output       string `koanf:"output"`
	OutputFormat string `koanf:"output_format"`
	// MetricsFile receives a Prometheus text dump after a plan run.
	MetricsFile string `koanf:"metrics_file"`
	// MetricsEnabled switches metric recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefresh is how often serve mode refreshes process and run gauges.
	MetricsRefresh time.Duration `koanf:"metrics_refresh"`

	// Seed makes runs reproducible.
	Seed int64 `koanf:"seed"`
	// WorkerCount sets the number of teams planned in parallel.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the team job queue.
	QueueSize int `koanf:"queue_size"`

	// Capacity is the session capacity for teams that do not set one.
	Capacity int `koanf:"capacity"`
	// RatioGuard is the minimum assisted share kept when splitting units.
	RatioGuard float64 `koanf:"ratio_guard"`
	// FullRetries is how often the matching ladder restarts before best effort.
	FullRetries int `koanf:"full_retries"`

	// Reserved names the positions held for duty units.
	Reserved Reserved `koanf:"reserved"`

	// Rotation lists weekly emergency tables; week n of the term uses
	// Rotation[n % len(Rotation)].
	Rotation [][]RotationEntry `koanf:"rotation"`
}

// Reserved positions per duty.
type Reserved struct {
	Emergency string `koanf:"emergency"`
	Overflow  string `koanf:"overflow"`
}

// RotationEntry puts teams on emergency duty for a weekday half-day.
type RotationEntry struct {
	Weekday string   `koanf:"weekday"`
	Period  string   `koanf:"period"`
	Teams   []string `koanf:"teams"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Mode:           ModePlan,
		Addr:           ":9080",
		OutputFormat:   FormatYAML,
		MetricsEnabled: true,
		MetricsRefresh: 10 * time.Second,
		Seed:           42,
		WorkerCount:    runtime.NumCPU(),
		QueueSize:      1024,
		Capacity:       13,
		RatioGuard:     0.375,
		FullRetries:    1,
		Reserved: Reserved{
			Emergency: "ER",
			Overflow:  "NPE",
		},
		Rotation: defaultRotation(),
	}
}

// defaultRotation is a two-week cycle over teams A to F.
func defaultRotation() [][]RotationEntry {
	week := func(rows ...[2]string) []RotationEntry {
		days := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
		out := make([]RotationEntry, 0, len(rows))
		for i, r := range rows {
			period := "AM"
			if i%2 == 1 {
				period = "PM"
			}
			out = append(out, RotationEntry{Weekday: days[i/2], Period: period, Teams: []string{r[0], r[1]}})
		}
		return out
	}
	return [][]RotationEntry{
		week([2]string{"A", "B"}, [2]string{"C", "D"}, [2]string{"E", "F"}, [2]string{"A", "B"}, [2]string{"C", "D"},
			[2]string{"E", "F"}, [2]string{"A", "C"}, [2]string{"B", "E"}, [2]string{"D", "F"}, [2]string{"A", "C"}),
		week([2]string{"B", "E"}, [2]string{"D", "F"}, [2]string{"A", "D"}, [2]string{"B", "F"}, [2]string{"C", "E"},
			[2]string{"A", "D"}, [2]string{"B", "F"}, [2]string{"C", "E"}, [2]string{"A", "E"}, [2]string{"B", "D"}),
	}
}
