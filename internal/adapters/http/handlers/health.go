package handlers

import (
	"net/http"
	"time"

	"github.com/snapwatch/worker/internal/ports"
)

// HealthHandler reports worker liveness and a browser pool snapshot
type HealthHandler struct {
	engine ports.CaptureEngine
}

func NewHealthHandler(engine ports.CaptureEngine) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string          `json:"status"`
	Timestamp  string          `json:"timestamp"`
	PoolStatus ports.PoolStats `json:"pool_status"`
}

// Handle processes GET /health requests
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		PoolStatus: h.engine.PoolStats(),
	}, http.StatusOK)
}
