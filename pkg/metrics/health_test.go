package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth(t *testing.T) {
	t.Helper()
	healthChecker = newHealthChecker()
}

func TestUpdateComponent(t *testing.T) {
	resetHealth(t)

	UpdateComponent(ComponentStore, true, "open")
	UpdateComponent(ComponentStore, false, "closed")

	require.Len(t, healthChecker.components, 1)
	comp := healthChecker.components[ComponentStore]
	assert.False(t, comp.Healthy)
	assert.Equal(t, "closed", comp.Message)
}

func TestGetHealth(t *testing.T) {
	resetHealth(t)
	SetVersion("1.2.3")

	UpdateComponent(ComponentStore, true, "")
	UpdateComponent(ComponentScheduler, true, "")

	health := GetHealth()
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Components, 2)
	assert.Equal(t, "1.2.3", health.Version)

	UpdateComponent(ComponentTasks, false, "pool stopped")
	health = GetHealth()
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: pool stopped", health.Components[ComponentTasks])
}

func TestGetReadiness(t *testing.T) {
	tests := []struct {
		name       string
		setup      func()
		wantStatus string
	}{
		{
			name: "all critical ready",
			setup: func() {
				UpdateComponent(ComponentStore, true, "")
				UpdateComponent(ComponentScheduler, true, "")
				UpdateComponent(ComponentTasks, true, "")
			},
			wantStatus: "ready",
		},
		{
			name: "missing critical component",
			setup: func() {
				UpdateComponent(ComponentStore, true, "")
			},
			wantStatus: "not_ready",
		},
		{
			name: "critical component unhealthy",
			setup: func() {
				UpdateComponent(ComponentStore, true, "")
				UpdateComponent(ComponentScheduler, false, "stopped")
				UpdateComponent(ComponentTasks, true, "")
			},
			wantStatus: "not_ready",
		},
		{
			name: "custom critical set",
			setup: func() {
				SetCriticalComponents(ComponentStore)
				UpdateComponent(ComponentStore, true, "")
			},
			wantStatus: "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			tt.setup()
			assert.Equal(t, tt.wantStatus, GetReadiness().Status)
		})
	}
}

func TestHealthHandlers(t *testing.T) {
	resetHealth(t)
	UpdateComponent(ComponentStore, false, "corrupt")

	rec := httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)

	rec = httptest.NewRecorder()
	ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestStaleComponent(t *testing.T) {
	resetHealth(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	healthChecker.now = func() time.Time { return now }

	SetCriticalComponents(ComponentScheduler)
	SetComponentMaxAge(ComponentScheduler, time.Minute)
	UpdateComponent(ComponentScheduler, true, "")
	assert.Equal(t, "ready", GetReadiness().Status)

	now = now.Add(90 * time.Second)
	readiness := GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.Equal(t, "not ready: no report for 1m30s", readiness.Components[ComponentScheduler])
	assert.Equal(t, "unhealthy", GetHealth().Status)

	UpdateComponent(ComponentScheduler, true, "")
	assert.Equal(t, "ready", GetReadiness().Status)

	SetComponentMaxAge(ComponentScheduler, 0)
	now = now.Add(time.Hour)
	assert.Equal(t, "ready", GetReadiness().Status)
}
