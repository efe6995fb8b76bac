package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus collectors for the service
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaPublishTotal    *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// Business metrics
	StockMutationsTotal   *prometheus.CounterVec
	AlertsRaisedTotal     *prometheus.CounterVec
	AlertsResolvedTotal   prometheus.Counter
	IdempotentReplaysTotal prometheus.Counter
	VersionConflictRetries prometheus.Counter
	ItemsTracked           prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		Registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: constLabels,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: constLabels,
				Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being served",
				ConstLabels: constLabels,
			},
		),

		KafkaPublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "kafka_publish_total",
				Help:        "Total number of Kafka publish attempts",
				ConstLabels: constLabels,
			},
			[]string{"topic", "status"},
		),
		KafkaPublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "kafka_publish_duration_seconds",
				Help:        "Kafka publish latency in seconds",
				ConstLabels: constLabels,
				Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"topic"},
		),

		StockMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "inventory_stock_mutations_total",
				Help:        "Total number of committed stock mutations by transaction type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		AlertsRaisedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "inventory_alerts_raised_total",
				Help:        "Total number of alerts raised by alert type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		AlertsResolvedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "inventory_alerts_resolved_total",
				Help:        "Total number of alerts resolved",
				ConstLabels: constLabels,
			},
		),
		IdempotentReplaysTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "inventory_idempotent_replays_total",
				Help:        "Total number of mutations answered from a stored idempotency result",
				ConstLabels: constLabels,
			},
		),
		VersionConflictRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "inventory_version_conflict_retries_total",
				Help:        "Total number of optimistic concurrency retries",
				ConstLabels: constLabels,
			},
		),
		ItemsTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "inventory_items_tracked",
				Help:        "Number of items currently tracked",
				ConstLabels: constLabels,
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaPublishTotal,
		m.KafkaPublishDuration,
		m.StockMutationsTotal,
		m.AlertsRaisedTotal,
		m.AlertsResolvedTotal,
		m.IdempotentReplaysTotal,
		m.VersionConflictRetries,
		m.ItemsTracked,
	)

	return m
}

// ObserveHTTPRequest records an HTTP request observation
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveKafkaPublish records a Kafka publish observation
func (m *Metrics) ObserveKafkaPublish(topic string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.KafkaPublishTotal.WithLabelValues(topic, status).Inc()
	m.KafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordStockMutation records a committed stock mutation
func (m *Metrics) RecordStockMutation(transactionType string) {
	m.StockMutationsTotal.WithLabelValues(transactionType).Inc()
}

// RecordAlertRaised records a newly raised alert
func (m *Metrics) RecordAlertRaised(alertType string) {
	m.AlertsRaisedTotal.WithLabelValues(alertType).Inc()
}
