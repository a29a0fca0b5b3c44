// health.go - Component health reporting for the wallet node.
package node

import (
	"sync"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents the health of a specific component.
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency,omitempty"`
}

// SystemHealth represents the overall node health.
type SystemHealth struct {
	OverallStatus HealthStatus      `json:"overall_status"`
	Timestamp     time.Time         `json:"timestamp"`
	Components    []ComponentHealth `json:"components"`
	Uptime        time.Duration     `json:"uptime"`
	Version       string            `json:"version"`
}

// HealthChecker runs registered probes and aggregates their status.
type HealthChecker struct {
	mu        sync.Mutex
	probes    map[string]func() error
	names     []string
	startTime time.Time
	version   string
}

// NewHealthChecker creates a health checker for the given node version.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		probes:    make(map[string]func() error),
		startTime: time.Now(),
		version:   version,
	}
}

// RegisterProbe registers a health probe for a component.
func (hc *HealthChecker) RegisterProbe(name string, probe func() error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if _, exists := hc.probes[name]; !exists {
		hc.names = append(hc.names, name)
	}
	hc.probes[name] = probe
}

// Check runs every probe and returns the aggregated system health.
func (hc *HealthChecker) Check() *SystemHealth {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	overall := Healthy
	components := make([]ComponentHealth, 0, len(hc.names))
	for _, name := range hc.names {
		start := time.Now()
		err := hc.probes[name]()
		component := ComponentHealth{
			Name:      name,
			Status:    Healthy,
			Message:   "OK",
			LastCheck: time.Now(),
			Latency:   time.Since(start),
		}
		if err != nil {
			component.Status = Unhealthy
			component.Message = err.Error()
			overall = Unhealthy
		}
		components = append(components, component)
	}

	return &SystemHealth{
		OverallStatus: overall,
		Timestamp:     time.Now(),
		Components:    components,
		Uptime:        time.Since(hc.startTime),
		Version:       hc.version,
	}
}
