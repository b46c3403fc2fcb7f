// Package loadtest drives a running rota server with generated roster
// documents and checks the stored runs.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rota/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrUnhealthy is returned when the health check does not answer 200.
var ErrUnhealthy = errors.New("service unhealthy")

// Run executes the complete load test.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting rota load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("documents", cfg.Documents),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.Bool("verbose", cfg.Verbose))

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, err
	}

	docs, err := generateDocuments(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("document generation failed: %w", err)
	}

	runs, err := submitPlans(ctx, cfg, docs, stats)
	if err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	if err := verifyRuns(ctx, cfg, runs, stats); err != nil {
		return stats, err
	}

	if cfg.OutputFile != "" && len(docs) > 0 {
		if err := saveDocument(cfg.OutputFile, docs[0]); err != nil {
			log.Warn(ctx, "failed to save document", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "load test completed",
		logger.Int("generated", stats.Generated),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.String("duration", stats.Duration.String()))
	return stats, nil
}

func checkServiceHealth(ctx context.Context, cfg *Config) error {
	resp, err := newHTTPClient(cfg.Timeout).Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func saveDocument(path string, doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), directoryPermission); err != nil {
		return err
	}
	return os.WriteFile(path, doc, filePermission)
}
