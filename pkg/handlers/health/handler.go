package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/iddaa-lens/jobrunner/pkg/database/pool"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
	"github.com/iddaa-lens/jobrunner/pkg/models/api"
)

// SlotReporter reports which job holds the execution slot and whether the
// cluster slot lock is held
type SlotReporter interface {
	Active() (int64, bool)
	SlotLockHeld(ctx context.Context) (held, enabled bool, err error)
}

// StatsFunc returns database pool statistics
type StatsFunc func() pool.Stats

// Handler handles health check requests
type Handler struct {
	slot   SlotReporter
	stats  StatsFunc
	logger *logger.Logger
}

// NewHandler creates a new health handler. stats may be nil when no
// database is configured.
func NewHandler(slot SlotReporter, stats StatsFunc, log *logger.Logger) *Handler {
	return &Handler{
		slot:   slot,
		stats:  stats,
		logger: log,
	}
}

// HealthCheck handles the /health endpoint
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}
	if id, ok := h.slot.Active(); ok {
		response.ActiveJobID = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	held, enabled, err := h.slot.SlotLockHeld(ctx)
	switch {
	case err != nil:
		response.Status = "degraded"
		h.logger.Warn().
			Err(err).
			Str("action", "slot_lock_check_failed").
			Str("endpoint", "/health").
			Msg("Failed to check cluster slot lock")
	case enabled:
		response.ClusterSlotLocked = &held
	}

	if h.stats != nil {
		stats := h.stats()
		response.Database = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().
			Err(err).
			Str("action", "health_check_failed").
			Str("endpoint", "/health").
			Msg("Failed to encode health response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	h.logger.Debug().
		Str("action", "health_check").
		Str("endpoint", "/health").
		Str("method", r.Method).
		Str("remote_addr", r.RemoteAddr).
		Int("status_code", 200).
		Dur("duration", time.Since(start)).
		Msg("Health check completed")
}
