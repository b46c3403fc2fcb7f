package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment key, e.g. ROTA_WORKER_COUNT.
const EnvPrefix = "ROTA_"

// nested maps flattened env keys back onto dotted config keys.
var nested = []string{"reserved_"}

// LoadDotEnv loads path into the process environment. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ROTA_CONFIG is set
//  3. env (prefix ROTA_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// ROTA_WORKER_COUNT -> worker_count, ROTA_RESERVED_EMERGENCY -> reserved.emergency
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		for _, p := range nested {
			if strings.HasPrefix(s, p) {
				return strings.TrimSuffix(p, "_") + "." + strings.TrimPrefix(s, p)
			}
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if k.Exists("rotation") {
		cfg.Rotation = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the rotation table.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.Mode != ModePlan && c.Mode != ModeServe:
		return invalid("mode %q must be %q or %q", c.Mode, ModePlan, ModeServe)
	case c.OutputFormat != FormatYAML && c.OutputFormat != FormatJSON:
		return invalid("output_format %q must be %q or %q", c.OutputFormat, FormatYAML, FormatJSON)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format %q must be text or json", c.LogFormat)
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.Capacity < 1:
		return invalid("capacity must be positive, got %d", c.Capacity)
	case c.RatioGuard <= 0 || c.RatioGuard >= 1:
		return invalid("ratio_guard must be in (0, 1), got %v", c.RatioGuard)
	case c.FullRetries < 0:
		return invalid("full_retries must not be negative, got %d", c.FullRetries)
	case c.MetricsRefresh <= 0:
		return invalid("metrics_refresh must be positive, got %s", c.MetricsRefresh)
	}
	for w, week := range c.Rotation {
		for _, e := range week {
			if _, err := ParseWeekday(e.Weekday); err != nil {
				return invalid("rotation week %d: %v", w, err)
			}
			if p := strings.ToUpper(e.Period); p != "AM" && p != "PM" {
				return invalid("rotation week %d: period %q", w, e.Period)
			}
		}
	}
	return nil
}

// ParseWeekday accepts weekday names and their three-letter forms.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
