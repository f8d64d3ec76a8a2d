package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/grip-gate/gripgate/internal/service"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker verifies component health.
type HealthChecker struct {
	gate    *service.Gate
	version string
}

// NewHealthChecker creates a HealthChecker for the gate.
func NewHealthChecker(gate *service.Gate, version string) *HealthChecker {
	return &HealthChecker{gate: gate, version: version}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.gate == nil || !h.gate.Configured() {
		checks["grip"] = "not configured"
		healthy = false
	} else if pub, err := h.gate.Publisher(); err != nil {
		checks["grip"] = fmt.Sprintf("error: %v", err)
		healthy = false
	} else {
		checks["grip"] = fmt.Sprintf("ok: %d proxies", len(pub.Clients()))
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable) // 503
		} else {
			w.WriteHeader(http.StatusOK) // 200
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
