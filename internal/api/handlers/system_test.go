package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/spell-bingo/internal/daemon"
)

type fixedHealth struct {
	status *daemon.HealthStatus
}

func (f fixedHealth) GetHealth() *daemon.HealthStatus { return f.status }

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		source HealthSource
		want   int
		status string
	}{
		{"no daemon", nil, http.StatusOK, "healthy"},
		{"healthy", fixedHealth{&daemon.HealthStatus{Status: "healthy"}}, http.StatusOK, "healthy"},
		{"degraded", fixedHealth{&daemon.HealthStatus{Status: "degraded"}}, http.StatusOK, "degraded"},
		{"unhealthy", fixedHealth{&daemon.HealthStatus{Status: "unhealthy"}}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(tt.source)
			rec := serve(t, http.MethodGet, "/health", "/health", h.Health, nil)
			assert.Equal(t, tt.want, rec.Code)

			var body struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
		})
	}
}

func TestSystemHandler_GetVersion(t *testing.T) {
	rec := serve(t, http.MethodGet, "/version", "/version", NewSystemHandler(nil).GetVersion, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	decodeData(t, rec, &out)
	assert.NotEmpty(t, out["version"])
}
