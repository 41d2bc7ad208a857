// Package metrics provides Prometheus metrics for the world record checker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Manager manages all Prometheus metrics of the checker.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Tick loop
	ticks        *prometheus.CounterVec
	tickDuration prometheus.Histogram
	lastTickUnix prometheus.Gauge

	// Domain
	recordsDetected   prometheus.Counter
	inconsistencies   prometheus.Counter
	confirmedLevels   prometheus.Gauge
	weeklyRollovers   prometheus.Counter
	recapEntries      prometheus.Gauge
	recapImprovement  prometheus.Gauge
	replayDownloads   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	heartbeats        *prometheus.CounterVec

	// Backend and store
	backendRequests        *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec
	storeOperations        *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	// HTTP status API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wrchecker",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.ticks = auto.NewCounterVec(m.counterOpts("ticks_total",
		"Total number of poll iterations by outcome"), []string{"result"})
	m.tickDuration = auto.NewHistogram(m.histogramOpts("tick_duration_seconds",
		"Duration of one poll iteration in seconds"))
	m.lastTickUnix = auto.NewGauge(m.gaugeOpts("last_tick_timestamp_seconds",
		"Unix time of the last finished poll iteration"))

	m.recordsDetected = auto.NewCounter(m.counterOpts("records_detected_total",
		"Total number of new world records detected"))
	m.inconsistencies = auto.NewCounter(m.counterOpts("data_inconsistencies_total",
		"Fetched scores for levels missing from the confirmed map"))
	m.confirmedLevels = auto.NewGauge(m.gaugeOpts("confirmed_levels",
		"Number of levels with a confirmed world record"))
	m.weeklyRollovers = auto.NewCounter(m.counterOpts("weekly_rollovers_total",
		"Total number of weekly challenge rollovers announced"))
	m.recapEntries = auto.NewGauge(m.gaugeOpts("recap_entries",
		"Number of levels in the last computed recap"))
	m.recapImprovement = auto.NewGauge(m.gaugeOpts("recap_improvement_seconds",
		"Total improvement of the last computed recap"))
	m.replayDownloads = auto.NewCounterVec(m.counterOpts("replay_downloads_total",
		"Replay download attempts by result"), []string{"result"})
	m.webhookDeliveries = auto.NewCounterVec(m.counterOpts("webhook_deliveries_total",
		"Webhook deliveries by message kind and result"), []string{"kind", "result"})
	m.heartbeats = auto.NewCounterVec(m.counterOpts("heartbeats_total",
		"Heartbeat pushes by result"), []string{"result"})

	m.backendRequests = auto.NewCounterVec(m.counterOpts("backend_requests_total",
		"Backend requests by operation and result"), []string{"operation", "result"})
	m.backendRequestDuration = auto.NewHistogramVec(m.histogramOpts("backend_request_duration_seconds",
		"Backend request duration in seconds"), []string{"operation"})
	m.storeOperations = auto.NewCounterVec(m.counterOpts("store_operations_total",
		"Store operations by operation and result"), []string{"operation", "result"})
	m.storeOperationDuration = auto.NewHistogramVec(m.histogramOpts("store_operation_duration_seconds",
		"Store operation duration in seconds"), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_seconds",
		"HTTP request duration in seconds"), []string{"endpoint", "method", "status_code"})
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// RecordTick records a finished poll iteration.
func RecordTick(result string, duration time.Duration) {
	globalManager.ticks.WithLabelValues(result).Inc()
	globalManager.tickDuration.Observe(duration.Seconds())
	globalManager.lastTickUnix.Set(float64(time.Now().Unix()))
}

// RecordRecordsDetected adds n newly detected world records.
func RecordRecordsDetected(n int) {
	globalManager.recordsDetected.Add(float64(n))
}

// RecordInconsistency increments the data inconsistency counter.
func RecordInconsistency() {
	globalManager.inconsistencies.Inc()
}

// UpdateConfirmedLevels sets the number of confirmed levels.
func UpdateConfirmedLevels(count int) {
	globalManager.confirmedLevels.Set(float64(count))
}

// RecordWeeklyRollover increments the rollover counter.
func RecordWeeklyRollover() {
	globalManager.weeklyRollovers.Inc()
}

// UpdateRecap sets the size and total improvement of the last recap.
func UpdateRecap(entries int, improvement float64) {
	globalManager.recapEntries.Set(float64(entries))
	globalManager.recapImprovement.Set(improvement)
}

// RecordReplayDownload records a replay download attempt.
func RecordReplayDownload(result string) {
	globalManager.replayDownloads.WithLabelValues(result).Inc()
}

// RecordWebhookDelivery records one webhook delivery.
func RecordWebhookDelivery(kind string, err error) {
	globalManager.webhookDeliveries.WithLabelValues(kind, resultOf(err)).Inc()
}

// RecordHeartbeat records a heartbeat push.
func RecordHeartbeat(err error) {
	globalManager.heartbeats.WithLabelValues(resultOf(err)).Inc()
}

// RecordBackendRequest records one backend request.
func RecordBackendRequest(operation string, duration time.Duration, err error) {
	globalManager.backendRequests.WithLabelValues(operation, resultOf(err)).Inc()
	globalManager.backendRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStoreOperation records one store operation.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	globalManager.storeOperations.WithLabelValues(operation, resultOf(err)).Inc()
	globalManager.storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served status API request.
func RecordHTTPRequest(endpoint, method string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	globalManager.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(duration.Seconds())
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
