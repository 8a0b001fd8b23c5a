// Package metrics provides Prometheus metrics for the PDM importer.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Manager manages all Prometheus metrics for the importer.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	recordsDecoded      *prometheus.CounterVec
	recordsRejected     *prometheus.CounterVec
	recordsAccepted     *prometheus.CounterVec
	auditWrites         prometheus.Counter
	auditErrors         prometheus.Counter
	watermark           prometheus.Gauge
	runDuration         prometheus.Gauge
	runSuccess          prometheus.Gauge
	runLastCompletedSec prometheus.Gauge

	// Store metrics
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	storeDocuments  *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pdmimport",
		subsystem:        "run",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recordsDecoded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_decoded_total",
		Help:      "Records yielded by the decoder, by pump category",
	}, []string{"category"})

	m.recordsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_rejected_total",
		Help:      "Records dropped before bucketing, by reason (ignored, stale, bad_timestamp, unknown)",
	}, []string{"reason"})

	m.recordsAccepted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_accepted_total",
		Help:      "Normalized records placed into a bucket",
	}, []string{"bucket"})

	m.auditWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_writes_total",
		Help:      "Lines appended to the audit log",
	})

	m.auditErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_errors_total",
		Help:      "Failed audit log appends",
	})

	m.watermark = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "watermark_milliseconds",
		Help:      "Resolved import watermark in epoch milliseconds",
	})

	m.runDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duration_milliseconds",
		Help:      "Duration of the last import run",
	})

	m.runSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "success",
		Help:      "1 if the last run persisted every collection, 0 otherwise",
	})

	m.runLastCompletedSec = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_completed_unix",
		Help:      "Unix time the last run completed",
	})

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Store operations by operation, collection and status",
	}, []string{"operation", "collection", "status"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "latency_milliseconds",
		Help:      "Store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation", "collection"})

	m.storeDocuments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "documents_total",
		Help:      "Documents inserted or deleted, by operation and collection",
	}, []string{"operation", "collection"})
}

// RecordDecoded increments the decoded counter for a category.
func RecordDecoded(category string) {
	globalManager.recordsDecoded.WithLabelValues(category).Inc()
}

// RecordRejected increments the rejected counter for a reason.
func RecordRejected(reason string) {
	globalManager.recordsRejected.WithLabelValues(reason).Inc()
}

// RecordAccepted increments the accepted counter for a bucket.
func RecordAccepted(bucket string) {
	globalManager.recordsAccepted.WithLabelValues(bucket).Inc()
}

// RecordAuditWrite increments the audit write counter.
func RecordAuditWrite() {
	globalManager.auditWrites.Inc()
}

// RecordAuditError increments the audit error counter.
func RecordAuditError() {
	globalManager.auditErrors.Inc()
}

// UpdateWatermark sets the resolved watermark.
func UpdateWatermark(ms int64) {
	globalManager.watermark.Set(float64(ms))
}

// RecordRun records the outcome of a completed run.
func RecordRun(duration time.Duration, success bool) {
	globalManager.runDuration.Set(float64(duration.Milliseconds()))
	if success {
		globalManager.runSuccess.Set(1)
	} else {
		globalManager.runSuccess.Set(0)
	}
	globalManager.runLastCompletedSec.Set(float64(time.Now().Unix()))
}

// RecordStoreOperation records one store call with its latency and the number
// of documents it touched.
func RecordStoreOperation(operation, collection string, latency time.Duration, docs int64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	globalManager.storeOperations.WithLabelValues(operation, collection, status).Inc()
	globalManager.storeLatency.WithLabelValues(operation, collection).Observe(float64(latency.Microseconds()) / 1000)
	if docs > 0 {
		globalManager.storeDocuments.WithLabelValues(operation, collection).Add(float64(docs))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Push sends the registry to a Pushgateway. One-shot runs are gone before a
// scrape could reach them.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(customRegistry)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}
