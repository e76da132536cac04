package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispatch"

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// Business metrics
	SurgeSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surge_signals_total",
			Help:      "Surge signal evaluations by signal and outcome",
		},
		[]string{"signal", "outcome"},
	)

	RideRequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ride_request_transitions_total",
			Help:      "Ride request transitions out of PENDING",
		},
		[]string{"status"},
	)

	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ride_transitions_total",
			Help:      "Ride lifecycle transitions",
		},
		[]string{"status"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Ride settlements by outcome",
		},
		[]string{"outcome"},
	)

	LedgerAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_anomalies_total",
			Help:      "Debits clamped at zero balance",
		},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Current number of active WebSocket connections",
		},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rabbitmq_messages_published_total",
			Help:      "Total number of messages published to RabbitMQ",
		},
		[]string{"exchange", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rabbitmq_messages_consumed_total",
			Help:      "Total number of messages consumed from RabbitMQ",
		},
		[]string{"queue", "status"},
	)

	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Total number of location messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 0.5=half-open, 1=open)",
		},
		[]string{"breaker"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordSurgeSignal records whether a surge signal produced a value.
func RecordSurgeSignal(signal string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "unavailable"
	}
	SurgeSignalsTotal.WithLabelValues(signal, outcome).Inc()
}

// RecordSettlement records a settlement attempt.
func RecordSettlement(err error) {
	SettlementsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(exchange string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(exchange, outcome(err)).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(queue, outcome(err)).Inc()
}

func RecordKafkaConsume(topic string, err error) {
	KafkaMessagesConsumed.WithLabelValues(topic, outcome(err)).Inc()
}

func RecordBreakerState(name string, value float64) {
	CircuitBreakerState.WithLabelValues(name).Set(value)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
