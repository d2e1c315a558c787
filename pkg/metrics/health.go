package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Component names registered by the daemon
const (
	ComponentStore     = "store"
	ComponentScheduler = "scheduler"
	ComponentTasks     = "tasks"
	ComponentAPI       = "api"
)

// HealthStatus represents the health status of the daemon
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "unhealthy", "ready", "not_ready"
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

var (
	healthChecker = newHealthChecker()
)

// ComponentHealth is the last reported state of one component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker keeps the reported state of every daemon component. A
// component with a max age that has not reported within it counts as
// unhealthy, so a stalled loop cannot keep its last healthy report forever.
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	maxAge     map[string]time.Duration
	critical   []string
	startTime  time.Time
	version    string
	now        func() time.Time
}

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		maxAge:     make(map[string]time.Duration),
		critical:   []string{ComponentStore, ComponentScheduler, ComponentTasks},
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// SetCriticalComponents replaces the components required for readiness
func SetCriticalComponents(names ...string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.critical = names
}

// SetComponentMaxAge marks name stale when it has not reported for maxAge.
// Zero disables the check.
func SetComponentMaxAge(name string, maxAge time.Duration) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	if maxAge <= 0 {
		delete(healthChecker.maxAge, name)
		return
	}
	healthChecker.maxAge[name] = maxAge
}

// UpdateComponent records the health of a component
func UpdateComponent(name string, healthy bool, message string) {
	healthChecker.update(name, healthy, message)
}

// GetHealth returns the state of every reported component
func GetHealth() HealthStatus {
	return healthChecker.health()
}

// GetReadiness reports whether every critical component is registered and healthy
func GetReadiness() HealthStatus {
	return healthChecker.readiness()
}

func (h *HealthChecker) update(name string, healthy bool, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: h.now(),
	}
}

// effective applies staleness to a stored report. Caller holds the lock.
func (h *HealthChecker) effective(comp ComponentHealth) ComponentHealth {
	maxAge, ok := h.maxAge[comp.Name]
	if !ok || !comp.Healthy {
		return comp
	}
	if age := h.now().Sub(comp.Updated); age > maxAge {
		comp.Healthy = false
		comp.Message = "no report for " + age.Round(time.Second).String()
	}
	return comp
}

func (h *HealthChecker) health() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	components := make(map[string]string, len(h.components))
	for name, stored := range h.components {
		comp := h.effective(stored)
		if !comp.Healthy {
			status = "unhealthy"
			components[name] = "unhealthy: " + comp.Message
			continue
		}
		components[name] = "healthy"
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  h.now(),
		Components: components,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

func (h *HealthChecker) readiness() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "ready"
	message := ""
	components := make(map[string]string, len(h.critical))
	for _, name := range h.critical {
		stored, exists := h.components[name]
		if !exists {
			status = "not_ready"
			message = "waiting for " + name + " initialization"
			components[name] = "not registered"
			continue
		}
		if comp := h.effective(stored); !comp.Healthy {
			status = "not_ready"
			message = "waiting for " + name
			components[name] = "not ready: " + comp.Message
			continue
		}
		components[name] = "ready"
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  h.now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// HealthHandler serves GetHealth as JSON, 503 when unhealthy
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()

		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, health)
	}
}

// ReadyHandler serves GetReadiness as JSON, 503 when not ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()

		statusCode := http.StatusOK
		if readiness.Status != "ready" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, readiness)
	}
}

// LivenessHandler always returns 200 while the process is running
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(healthChecker.startTime).String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
