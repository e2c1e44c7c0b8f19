package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/franchisehub/api/internal/platform/httpx"
)

// Pinger reports whether the backing database currently accepts connections.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db      Pinger
	started time.Time
}

// NewHealthHandler constructs the handler. A nil pinger makes readiness
// unconditional, which suits tests and local tooling.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Live reports process liveness.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports readiness to serve traffic, including database connectivity.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}
