package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource exposes the executor's counters to the status endpoint.
type StatsSource interface {
	Stats() (processed, failed int64)
}

// Server is the bridge daemon's small operational surface: a JSON
// status page, a liveness check, and Prometheus metrics.
type Server struct {
	stats   StatsSource
	started time.Time
}

func NewServer(stats StatsSource) *Server {
	return &Server{stats: stats, started: time.Now()}
}

func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	processed, failed := int64(0), int64(0)
	if s.stats != nil {
		processed, failed = s.stats.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime_seconds":     int(time.Since(s.started).Seconds()),
		"commands_processed": processed,
		"commands_failed":    failed,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
