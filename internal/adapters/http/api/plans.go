package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/mq/queue"
	"github.com/okian/rota/internal/adapters/report"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/adapters/roster"
	"github.com/okian/rota/pkg/logger"
)

// MaxBodyBytes bounds roster documents accepted by POST /plans.
const MaxBodyBytes = 8 << 20

// PlansHandler handles plan run requests.
type PlansHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewPlansHandler creates a new plans handler.
func NewPlansHandler(deps Dependencies, log logger.Logger) *PlansHandler {
	return &PlansHandler{deps: deps, log: log}
}

// HandlePostPlan handles POST /plans. The body is a roster document in YAML
// or JSON; the response is the finished run.
func (h *PlansHandler) HandlePostPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if len(body) > MaxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrTooLarge)
		return
	}
	doc, err := roster.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	run, err := h.deps.Submit(r.Context(), doc)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, newRunResponse(run))
	case errors.Is(err, roster.ErrInvalidDocument):
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid_document", err, run)
	case errors.Is(err, queue.ErrQueueFull):
		writeJSONError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err), run)
	default:
		h.log.Error(r.Context(), "plan run failed", logger.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", err, run)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code string, err error, run repository.Run) {
	resp := errorResponse{Code: code, Message: err.Error()}
	if run.ID != uuid.Nil {
		resp.RunID = run.ID.String()
	}
	writeJSON(w, status, resp)
}

// HandleGetPlan handles GET /plans/{id}. ?format=yaml returns the bare
// report as YAML.
func (h *PlansHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/plans/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	id, err := uuid.Parse(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	run, err := h.deps.Run(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	if r.URL.Query().Get("format") == report.FormatYAML && run.Report != nil {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = report.Encode(w, report.FormatYAML, *run.Report)
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run))
}
