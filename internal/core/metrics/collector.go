package metrics

import (
	"time"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
)

// MetricsCollector defines the interface for collecting metrics. It is a
// coordinator.Recorder as well.
type MetricsCollector interface {
	coordinator.Recorder
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordWebSocketConnection(action string)
	ObserveSnapshot(m coordinator.Metrics, available bool)
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

// NopCollector discards everything. It is used when monitoring is disabled.
type NopCollector struct{}

func (NopCollector) RecordTick(bool, time.Duration)                       {}
func (NopCollector) RecordFetch(fileflows.Resource, string)               {}
func (NopCollector) RecordCommand(fileflows.CommandName, bool)            {}
func (NopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NopCollector) RecordWebSocketConnection(string)                     {}
func (NopCollector) ObserveSnapshot(coordinator.Metrics, bool)            {}

// Observe returns a coordinator subscriber that mirrors every tick into c.
func Observe(c MetricsCollector) func(coordinator.Update) {
	return func(u coordinator.Update) {
		c.ObserveSnapshot(u.Snapshot.Metrics(), u.Status.Available)
	}
}
