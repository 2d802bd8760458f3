package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/WessleyAI/wessley-coverage/pkg/metrics"
	"github.com/WessleyAI/wessley-coverage/pkg/mid"
)

type server struct {
	grids   *coverage.Registry
	dataset domain.Dataset
	metrics *metrics.Registry
	logger  *slog.Logger
	// toggles rate-limits each grid separately. Nil disables limiting.
	toggles *mid.Limiters
	gridTTL time.Duration

	mounts  *metrics.Counter
	mounted *metrics.Gauge
	evicted *metrics.Counter
}

func newServer(grids *coverage.Registry, dataset domain.Dataset, reg *metrics.Registry, logger *slog.Logger, toggles *mid.Limiters, gridTTL time.Duration) *server {
	return &server{
		grids:   grids,
		dataset: dataset,
		metrics: reg,
		logger:  logger,
		toggles: toggles,
		gridTTL: gridTTL,
		mounts:  reg.Counter("coverage_grid_mounts_total", "Grids mounted"),
		mounted: reg.Gauge("coverage_grids_mounted", "Grids currently mounted"),
		evicted: reg.Counter("coverage_grid_evictions_total", "Idle grids unmounted by the sweeper"),
	}
}

func gridID(r *http.Request) string { return r.PathValue("id") }

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /api/grids/{id}", s.handleGetGrid)
	mux.HandleFunc("DELETE /api/grids/{id}", s.handleUnmount)
	mux.Handle("POST /api/grids/{id}/coverage",
		mid.Chain(http.HandlerFunc(s.handleSetCoverage), mid.RateLimit(s.toggles, gridID)))
	return mux
}

func (s *server) afterSweep(removed int) {
	if removed > 0 {
		s.evicted.Add(int64(removed))
		s.logger.Info("idle grids unmounted", "count", removed)
	}
	if s.toggles != nil {
		s.toggles.Prune(s.gridTTL)
	}
	s.mounted.Set(int64(s.grids.Len()))
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex mounts a fresh grid and renders it. The optional style query
// parameter is applied to the outermost container after invalid declarations
// are dropped.
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, grid := s.grids.Mount(s.dataset)
	s.mounts.Inc()
	s.mounted.Set(int64(s.grids.Len()))

	style := containerStyle(r.URL.Query().Get("style"))
	page := pageData{
		GridID:         id,
		ContainerStyle: style,
		Layout:         grid.Layout(string(style), nil),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, page); err != nil {
		s.logger.Error("render grid failed", "grid", id, "err", err)
	}
}

// GridResponse is the JSON body for GET /api/grids/{id}.
type GridResponse struct {
	ID string `json:"id"`
	domain.Dataset
}

func (s *server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	grid, err := s.grids.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{
		ID: id,
		Dataset: domain.Dataset{
			VehicleModels: grid.Models(),
			Years:         grid.Years(),
			Coverage:      grid.Coverage(),
		},
	})
}

func (s *server) handleUnmount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.grids.Unmount(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if s.toggles != nil {
		s.toggles.Forget(id)
	}
	s.mounted.Set(int64(s.grids.Len()))
	w.WriteHeader(http.StatusNoContent)
}

// SetCoverageRequest is the JSON body for POST /api/grids/{id}/coverage.
type SetCoverageRequest struct {
	Model   domain.VehicleModel `json:"model"`
	Year    domain.ModelYear    `json:"year"`
	Covered *bool               `json:"covered"`
}

func (s *server) handleSetCoverage(w http.ResponseWriter, r *http.Request) {
	var req SetCoverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" || req.Covered == nil {
		writeError(w, http.StatusBadRequest, "model, year and covered are required")
		return
	}

	id := r.PathValue("id")
	grid, err := s.grids.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !grid.InUniverse(req.Model, req.Year) {
		writeError(w, http.StatusBadRequest, "model or year not on this grid")
		return
	}

	changed, err := s.grids.SetCoverage(r.Context(), id, req.Model, req.Year, *req.Covered)
	switch {
	case errors.Is(err, coverage.ErrGridNotFound):
		// Evicted between lookup and update.
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("set coverage failed", "grid", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if changed {
		direction := coverage.StateUncovered
		if *req.Covered {
			direction = coverage.StateCovered
		}
		s.metrics.Counter(metrics.WithLabels("coverage_toggles_total", "direction", direction.String()),
			"Coverage toggles applied").Inc()
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
