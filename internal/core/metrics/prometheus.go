package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
)

// PrometheusCollector implements MetricsCollector using Prometheus metrics
type PrometheusCollector struct {
	config *MetricsConfig

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketEvents      *prometheus.CounterVec

	// Poll Metrics
	ticksTotal     *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	fetchesTotal   *prometheus.CounterVec
	commandsTotal  *prometheus.CounterVec
	available      prometheus.Gauge
	lastSuccessful prometheus.Gauge

	// FileFlows Metrics
	queueSize         prometheus.Gauge
	processing        prometheus.Gauge
	processed         prometheus.Gauge
	failed            prometheus.Gauge
	activeWorkers     prometheus.Gauge
	storageSavedBytes prometheus.Gauge
	enabledNodes      prometheus.Gauge
}

// NewPrometheusCollector registers the collector's metrics with reg, or with
// the default registry when reg is nil.
func NewPrometheusCollector(config *MetricsConfig, reg prometheus.Registerer) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "fileflows_bridge",
		}
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	prefix := config.Prefix
	factory := promauto.With(reg)

	collector := &PrometheusCollector{config: config}

	// Initialize HTTP metrics
	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Initialize WebSocket metrics
	collector.websocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	collector.websocketEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_websocket_connection_events_total",
			Help: "WebSocket connects and disconnects",
		},
		[]string{"action"},
	)

	// Initialize poll metrics
	collector.ticksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_ticks_total",
			Help: "Poll ticks by result",
		},
		[]string{"result"},
	)

	collector.tickDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_tick_duration_seconds",
			Help:    "Duration of a complete poll tick",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	collector.fetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_resource_fetches_total",
			Help: "Resource fetches by resource and result",
		},
		[]string{"resource", "result"},
	)

	collector.commandsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_commands_total",
			Help: "Control commands by command and result",
		},
		[]string{"command", "success"},
	)

	collector.available = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_available",
			Help: "1 when the last tick succeeded",
		},
	)

	collector.lastSuccessful = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_last_successful_tick_timestamp_seconds",
			Help: "Unix time of the last successful tick",
		},
	)

	// Initialize FileFlows gauges
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Name: prefix + "_" + name, Help: help})
	}
	collector.queueSize = gauge("queue_size", "Files waiting or processing")
	collector.processing = gauge("files_processing", "Files currently processing")
	collector.processed = gauge("files_processed", "Files processed")
	collector.failed = gauge("files_failed", "Files that failed processing")
	collector.activeWorkers = gauge("active_workers", "Running flow workers")
	collector.storageSavedBytes = gauge("storage_saved_bytes", "Bytes saved across all libraries")
	collector.enabledNodes = gauge("enabled_nodes", "Enabled processing nodes")

	return collector
}

// RecordHTTPRequest records an HTTP request metric
func (p *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWebSocketConnection records a WebSocket connect or disconnect
func (p *PrometheusCollector) RecordWebSocketConnection(action string) {
	switch action {
	case "connect":
		p.websocketConnections.Inc()
	case "disconnect":
		p.websocketConnections.Dec()
	}
	p.websocketEvents.WithLabelValues(action).Inc()
}

// RecordTick records one poll tick
func (p *PrometheusCollector) RecordTick(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	p.ticksTotal.WithLabelValues(result).Inc()
	p.tickDuration.Observe(duration.Seconds())
	if success {
		p.lastSuccessful.SetToCurrentTime()
	}
}

// RecordFetch records one resource fetch outcome
func (p *PrometheusCollector) RecordFetch(resource fileflows.Resource, result string) {
	p.fetchesTotal.WithLabelValues(string(resource), result).Inc()
}

// RecordCommand records one control command
func (p *PrometheusCollector) RecordCommand(command fileflows.CommandName, success bool) {
	p.commandsTotal.WithLabelValues(string(command), strconv.FormatBool(success)).Inc()
}

// ObserveSnapshot mirrors derived metrics into gauges
func (p *PrometheusCollector) ObserveSnapshot(m coordinator.Metrics, available bool) {
	if available {
		p.available.Set(1)
	} else {
		p.available.Set(0)
	}
	p.queueSize.Set(float64(m.QueueSize))
	p.processing.Set(float64(m.Processing))
	p.processed.Set(float64(m.Processed))
	p.failed.Set(float64(m.Failed))
	p.activeWorkers.Set(float64(m.ActiveWorkers))
	p.storageSavedBytes.Set(float64(m.StorageSavedBytes))
	p.enabledNodes.Set(float64(m.EnabledNodes))
}
