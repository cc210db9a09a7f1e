package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/morezero/runtime-ipc/pkg/dispatcher"
	"github.com/morezero/runtime-ipc/pkg/semver"
)

const healthLogPrefix = "server:health"

// HealthOutput is the body of GET /health.
type HealthOutput struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// StatsOutput is the body of GET /stats.
type StatsOutput struct {
	ProtocolVersion string           `json:"protocolVersion"`
	ProtocolRange   string           `json:"protocolRange"`
	Types           []string         `json:"types"`
	Dispatch        dispatcher.Stats `json:"dispatch"`
	JournalDropped  int64            `json:"journalDropped"`
}

// Handler returns the HTTP mux serving /health, /ready and /stats.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Health runs every component check. The host is healthy when all pass.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}

	if s.nc != nil && s.nc.IsConnected() {
		out.Checks["comms"] = "ok"
	} else {
		out.Checks["comms"] = "disconnected"
		out.Status = "unhealthy"
	}

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			out.Checks["journal"] = err.Error()
			out.Status = "unhealthy"
		} else {
			out.Checks["journal"] = "ok"
		}
	} else {
		out.Checks["journal"] = "disabled"
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()

	h := s.Health(ctx)
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.disp == nil || s.sub == nil || !s.sub.IsValid() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.disp == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, &StatsOutput{
		ProtocolVersion: semver.ProtocolVersion,
		ProtocolRange:   s.cfg.ProtocolRange,
		Types:           s.disp.Types(),
		Dispatch:        s.disp.Stats(),
		JournalDropped:  s.journalDropped(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to write response: %v", healthLogPrefix, err))
	}
}

func (s *Server) journalDropped() int64 {
	if s.journal == nil {
		return 0
	}
	return s.journal.Dropped()
}
