package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthStatus is the body of GET /health-check/uptime.
type HealthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// HealthHandler answers liveness probes. It touches no storage.
type HealthHandler struct {
	started time.Time
	now     func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now(), now: time.Now}
}

// Ping dispatches on the {action} path segment: "ping" or "uptime".
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "uptime":
		writeJSON(w, http.StatusOK, HealthStatus{
			Status:        "ok",
			UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
