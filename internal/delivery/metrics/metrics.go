package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived tracks events received from the source
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_received_total",
			Help: "Total number of events received from the event source",
		},
		[]string{"subscription"},
	)

	// EventsMatched tracks events that passed subscription filters
	EventsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_matched_total",
			Help: "Total number of events that matched a subscription filter",
		},
		[]string{"subscription"},
	)

	// DeliveryAttempts tracks send attempts per webhook and outcome
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_delivery_attempts_total",
			Help: "Total number of webhook send attempts",
		},
		[]string{"webhook", "outcome"},
	)

	// DeliveryLatency tracks webhook response latency
	DeliveryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_delivery_latency_seconds",
			Help:    "Webhook delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"webhook"},
	)

	// QueuePending tracks deliveries waiting in the queue
	QueuePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_queue_pending",
			Help: "Number of deliveries waiting in the queue",
		},
	)

	// QueueProcessing tracks in-flight deliveries
	QueueProcessing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_queue_processing",
			Help: "Number of deliveries currently in flight",
		},
	)

	// CircuitOpen tracks breakers currently denying calls
	CircuitOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_circuit_open",
			Help: "Whether the circuit breaker for a webhook is open (1) or not (0)",
		},
		[]string{"webhook"},
	)
)

// Outcome labels for DeliveryAttempts.
const (
	OutcomeSuccess       = "success"
	OutcomeFailure       = "failure"
	OutcomeCircuitDenied = "circuit_denied"
	OutcomeInvalidConfig = "invalid_config"
)
