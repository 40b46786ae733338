package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/growthpath/growthpath-be/internal/monitoring"
	"github.com/rs/zerolog/log"
)

const healthPingTimeout = 2 * time.Second

// Pinger checks that the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider exposes the latest process sample.
type StatsProvider interface {
	Snapshot() monitoring.ProcessStats
	Uptime() time.Duration
}

// HealthHandler reports service and database health.
type HealthHandler struct {
	db    Pinger
	stats StatsProvider
}

// NewHealthHandler creates a new HealthHandler. A nil db is reported as the
// in-memory store, which is always up.
func NewHealthHandler(db Pinger, stats StatsProvider) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database"`
	Uptime   string                   `json:"uptime"`
	Process  *monitoring.ProcessStats `json:"process,omitempty"`
}

// Check handles GET /health. It answers 503 when the database ping fails.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "up"}
	status := http.StatusOK

	if h.db == nil {
		resp.Database = "memory"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("Health check: database ping failed")
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	if h.stats != nil {
		snapshot := h.stats.Snapshot()
		resp.Process = &snapshot
		resp.Uptime = h.stats.Uptime().Round(time.Second).String()
	}

	respondJSON(w, status, resp)
}
