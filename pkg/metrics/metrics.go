package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Total number of records handled by the ingestion endpoints (count)",
		},
		[]string{"endpoint", "outcome"},
	)

	IngestRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_request_duration_ms",
			Help:    "Duration of ingestion requests in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"endpoint", "status"},
	)

	IngestBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_size",
			Help:    "Number of items submitted per batch request (count)",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	BusPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publish_total",
			Help: "Total number of publish calls to the message bus (count)",
		},
		[]string{"bus", "status"},
	)

	BusPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bus_publish_duration_ms",
			Help:    "Duration of publish calls to the message bus in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"bus"},
	)

	BusMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bus_message_size_bytes",
			Help:    "Size of published messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"bus"},
	)

	BusConnectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_connect_attempts_total",
			Help: "Total number of message bus connection attempts at startup (count)",
		},
		[]string{"bus", "status"},
	)

	BusMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_read_total",
			Help: "Total number of messages read from the message bus (count)",
		},
		[]string{"bus", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

func RegisterIngestionMetrics() {
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(IngestRequestDuration)
	prometheus.MustRegister(IngestBatchSize)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(BusPublishTotal)
	prometheus.MustRegister(BusPublishDuration)
	prometheus.MustRegister(BusMessageSizeBytes)
	prometheus.MustRegister(BusConnectAttemptsTotal)
	prometheus.MustRegister(BusMessagesReadTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncIngestRecord(endpoint, outcome string) {
	IngestRecordsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func ObserveIngestRequestDuration(endpoint, status string, duration time.Duration) {
	IngestRequestDuration.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

func ObserveBatchSize(size int) {
	IngestBatchSize.Observe(float64(size))
}

func IncBusPublish(bus, status string) {
	BusPublishTotal.WithLabelValues(bus, status).Inc()
}

func ObserveBusPublishDuration(bus string, duration time.Duration) {
	BusPublishDuration.WithLabelValues(bus).Observe(float64(duration.Milliseconds()))
}

func ObserveBusMessageSize(bus string, sizeBytes int) {
	BusMessageSizeBytes.WithLabelValues(bus).Observe(float64(sizeBytes))
}

func IncBusConnectAttempt(bus, status string) {
	BusConnectAttemptsTotal.WithLabelValues(bus, status).Inc()
}

func IncBusMessagesRead(bus, topic string) {
	BusMessagesReadTotal.WithLabelValues(bus, topic).Inc()
}
