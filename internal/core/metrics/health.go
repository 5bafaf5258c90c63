package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status     string                  `json:"status"`
	Message    string                  `json:"message"`
	Timestamp  time.Time               `json:"timestamp"`
	Duration   time.Duration           `json:"duration"`
	Components map[string]HealthStatus `json:"components"`
	SystemInfo map[string]interface{}  `json:"system_info"`
}

// HealthChecker aggregates named component checks.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]func() HealthStatus
}

// NewHealthChecker creates an empty health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]func() HealthStatus)}
}

// RegisterCheck adds or replaces a named check.
func (h *HealthChecker) RegisterCheck(name string, check func() HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// GetOverallHealth runs every check and folds the results.
func (h *HealthChecker) GetOverallHealth() HealthReport {
	start := time.Now()

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	components := make(map[string]HealthStatus, len(names))
	for _, name := range names {
		h.mu.RLock()
		check := h.checks[name]
		h.mu.RUnlock()
		components[name] = check()
	}

	overallStatus, message := calculateOverallStatus(components)

	return HealthReport{
		Status:     overallStatus,
		Message:    message,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
		Components: components,
		SystemInfo: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		},
	}
}

// calculateOverallStatus determines the overall health status based on component statuses
func calculateOverallStatus(components map[string]HealthStatus) (string, string) {
	degradedCount := 0
	unhealthyCount := 0
	unknownCount := 0
	totalCount := len(components)

	for _, status := range components {
		switch status.Status {
		case StatusHealthy:
		case StatusDegraded:
			degradedCount++
		case StatusUnhealthy:
			unhealthyCount++
		default:
			unknownCount++
		}
	}

	if unhealthyCount > 0 {
		return StatusUnhealthy, fmt.Sprintf("%d/%d components unhealthy", unhealthyCount, totalCount)
	}
	if degradedCount > 0 {
		return StatusDegraded, fmt.Sprintf("%d/%d components degraded", degradedCount, totalCount)
	}
	if unknownCount > 0 {
		return "unknown", fmt.Sprintf("%d/%d components unknown", unknownCount, totalCount)
	}
	return StatusHealthy, fmt.Sprintf("All %d components healthy", totalCount)
}

// startTime tracks when the application started
var startTime = time.Now()

// NewHealthStatus creates a new health status
func NewHealthStatus(status, message string) HealthStatus {
	return HealthStatus{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

// WithDetail adds a single detail to a health status
func (h HealthStatus) WithDetail(key string, value interface{}) HealthStatus {
	if h.Details == nil {
		h.Details = make(map[string]interface{})
	}
	h.Details[key] = value
	return h
}

// IsHealthy returns true if the status is healthy
func (h HealthStatus) IsHealthy() bool {
	return h.Status == StatusHealthy
}

// CoordinatorCheck reports the poll loop: healthy while ticks succeed,
// degraded while serving data from an earlier tick or the state file,
// unhealthy when nothing has ever been fetched.
func CoordinatorCheck(c interface {
	Status() coordinator.Status
	Snapshot() *coordinator.Snapshot
}) func() HealthStatus {
	return func() HealthStatus {
		status := c.Status()
		snap := c.Snapshot()

		var health HealthStatus
		switch {
		case status.Available:
			health = NewHealthStatus(StatusHealthy, "FileFlows reachable")
		case !snap.FetchedAt().IsZero():
			health = NewHealthStatus(StatusDegraded, "Serving stale FileFlows data")
		default:
			health = NewHealthStatus(StatusUnhealthy, "FileFlows unavailable")
		}

		health = health.WithDetail("ticks", status.Ticks).
			WithDetail("consecutive_failures", status.ConsecutiveFailures)
		if !status.LastSuccess.IsZero() {
			health = health.WithDetail("last_success", status.LastSuccess)
		}
		if status.LastError != "" {
			health = health.WithDetail("last_error", status.LastError)
		}
		return health
	}
}

// HealthCheckWithTimeout performs a health check with timeout
func HealthCheckWithTimeout(ctx context.Context, timeout time.Duration, check func() HealthStatus) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resultChan := make(chan HealthStatus, 1)

	go func() {
		resultChan <- check()
	}()

	select {
	case result := <-resultChan:
		result.Duration = time.Since(start)
		return result
	case <-ctx.Done():
		status := NewHealthStatus(StatusUnhealthy, "Health check timed out")
		status.Duration = time.Since(start)
		return status
	}
}
