package handlers

import (
	"net/http"

	"github.com/ramonehamilton/spell-bingo/internal/api/response"
	"github.com/ramonehamilton/spell-bingo/internal/daemon"
	"github.com/ramonehamilton/spell-bingo/internal/version"
)

// HealthSource reports daemon health. *daemon.Service satisfies it.
type HealthSource interface {
	GetHealth() *daemon.HealthStatus
}

// SystemHandler handles health and version requests.
type SystemHandler struct {
	health HealthSource
}

// NewSystemHandler creates a new SystemHandler. health may be nil when the
// server runs without a daemon.
func NewSystemHandler(health HealthSource) *SystemHandler {
	return &SystemHandler{health: health}
}

// Health returns daemon health. An unhealthy daemon answers 503.
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	if h.health == nil {
		response.JSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": version.GetVersion(),
		})
		return
	}

	status := h.health.GetHealth()
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, code, status)
}

// GetVersion returns the build version.
func (h *SystemHandler) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"version": version.GetVersion()})
}
