package handlers

import (
	"context"
	"log"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness together with storage connectivity.
type HealthHandler struct {
	DB Pinger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.DB.PingContext(ctx); err != nil {
			log.Printf("health check: database ping failed: %v", err)
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status":   "error",
				"database": "disconnected",
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
}
