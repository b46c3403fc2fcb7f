package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/rota/internal/adapters/http/api"
	"github.com/okian/rota/internal/adapters/http/swagger"
	"github.com/okian/rota/internal/adapters/report"
	"github.com/okian/rota/internal/adapters/roster"
	service "github.com/okian/rota/internal/app"
	"github.com/okian/rota/internal/config"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// ErrNoInput is returned in plan mode without a roster document.
var ErrNoInput = errors.New("plan mode needs an input document (ROTA_INPUT or input:)")

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("rota: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.SetEnabled(cfg.MetricsEnabled)
	metrics.SetRefreshInterval(cfg.MetricsRefresh)

	opts, err := service.FromConfig(cfg)
	if err != nil {
		return err
	}
	svc := service.New(append(opts, service.WithLogger(log.Named("service")))...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	switch cfg.Mode {
	case config.ModeServe:
		return serve(ctx, cfg, svc, log)
	default:
		return plan(ctx, cfg, svc, log)
	}
}

// plan runs one batch over cfg.Input and writes the report.
func plan(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return ErrNoInput
	}
	doc, err := roster.LoadFile(cfg.Input)
	if err != nil {
		return err
	}

	start := time.Now()
	rep, err := svc.Plan(ctx, doc)
	if err != nil {
		return err
	}
	log.Info(ctx, "plan finished",
		logger.String("run_id", rep.RunID),
		logger.Int("teams", len(rep.Teams)),
		logger.Int("ms", int(time.Since(start).Milliseconds())))

	if err := report.WriteFile(cfg.Output, cfg.OutputFormat, rep); err != nil {
		return err
	}
	if cfg.MetricsFile != "" {
		updateSystemMetrics()
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// serve exposes the plan API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) error {
	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, log.Named("http")).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes process metrics every
// metrics.RefreshInterval until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics mirrors the run counters from GetStats.
func updateServiceMetrics(svc *service.Service) {
	for key, v := range svc.GetStats() {
		status, ok := strings.CutPrefix(key, "runs_")
		if !ok {
			continue
		}
		if n, ok := v.(int); ok {
			metrics.UpdateStoredRuns(status, n)
		}
	}
}
