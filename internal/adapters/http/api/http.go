// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/report"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/adapters/roster"
	"github.com/okian/rota/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit plans a roster document as a stored run.
	Submit(ctx context.Context, doc *roster.Document) (repository.Run, error)
	// Run returns a stored run.
	Run(ctx context.Context, id uuid.UUID) (repository.Run, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	plansHandler  *PlansHandler
	stats         StatsProvider
	log           logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		plansHandler:  NewPlansHandler(deps, log.Named("plans")),
		stats:         statsProvider,
		log:           log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("/plans", MetricsMiddleware(RequestIDMiddleware(s.plansHandler.HandlePostPlan, s.log), "plans"))
	mux.HandleFunc("/plans/", MetricsMiddleware(RequestIDMiddleware(s.plansHandler.HandleGetPlan, s.log), "plan"))
}

// handleStats handles GET /stats requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := map[string]interface{}{}
	if s.stats != nil {
		stats = s.stats.GetStats()
	}
	writeJSON(w, http.StatusOK, stats)
}

// runResponse is the wire shape of a plan run.
type runResponse struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Created  time.Time      `json:"created"`
	Finished *time.Time     `json:"finished,omitempty"`
	Error    string         `json:"error,omitempty"`
	Report   *report.Report `json:"report,omitempty"`
}

func newRunResponse(run repository.Run) runResponse {
	out := runResponse{
		ID:      run.ID.String(),
		Status:  string(run.Status),
		Created: run.Created,
		Error:   run.Error,
		Report:  run.Report,
	}
	if !run.Finished.IsZero() {
		f := run.Finished
		out.Finished = &f
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
