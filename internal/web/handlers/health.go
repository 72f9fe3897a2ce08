package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	healthStatusHealthy = "healthy"
	healthStatusOK      = "ok"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// healthzHandler handles liveness probes (/healthz)
// Returns 200 if the application is running
func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := HealthResponse{
		Status: healthStatusOK,
	}

	_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // Best effort response
}

// readyzHandler handles readiness probes (/readyz)
// Checks the database and, when enabled, the cache. Object storage is not
// checked as public reads do not depend on it.
func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	for name, check := range h.ReadinessChecks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = healthStatusHealthy
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if allHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := HealthResponse{
		Status: healthStatusOK,
		Checks: checks,
	}

	if !allHealthy {
		response.Status = "unhealthy"
	}

	_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // Best effort response
}
