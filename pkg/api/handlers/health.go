package handlers

import (
	"net/http"

	"github.com/orderflow/orderflow/pkg/api/response"
	"github.com/orderflow/orderflow/pkg/version"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	degraded func() bool
}

// NewHealthHandler creates a health handler. degraded reports whether the
// publish pipeline is currently failing; it may be nil.
func NewHealthHandler(degraded func() bool) *HealthHandler {
	return &HealthHandler{degraded: degraded}
}

// Health handles the /healthz endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles the /readyz endpoint (readiness probe). The service is not
// ready while the event publisher is in degraded mode.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.degraded != nil && h.degraded() {
		response.JSON(w, http.StatusServiceUnavailable, map[string]bool{
			"ready": false,
		})
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{
		"ready": true,
	})
}

// Status handles the /status endpoint (build and version information).
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, version.Info())
}
