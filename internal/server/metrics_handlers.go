package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/normanking/empath/internal/metrics"
)

const defaultRecentEvents = 20

// handleMetrics returns the collector snapshot as JSON.
// GET /api/metrics?recent=N
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, ErrMetricsDisabled)
		return
	}

	n := defaultRecentEvents
	if v := r.URL.Query().Get("recent"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, ErrBadRequest.WithDetails("recent must be a non-negative integer"))
			return
		}
		n = parsed
	}

	snap := s.collector.Snapshot()
	resp := MetricsResponse{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Snapshot:     snap,
		AvgLatencyMs: snap.AvgLatencyMs(),
		FallbackRate: snap.FallbackRate(),
	}
	if n > 0 {
		resp.Recent = s.collector.RecentEvents(n)
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, resp)
}

// handleDashboard renders the metrics dashboard as plain text.
// GET /api/metrics/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, ErrMetricsDisabled)
		return
	}
	d := metrics.NewDashboard()
	if v, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && v > 0 {
		d.SetWidth(v)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write([]byte(d.Render(s.collector.Snapshot())))
}

// registerMetricsRoutes registers all metrics-related routes on the given mux.
func (s *Server) registerMetricsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/metrics/dashboard", s.handleDashboard)
}
