package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Pricing metrics
	pricingCounter *prometheus.CounterVec
	pricingLatency *prometheus.HistogramVec
	pricingErrors  *prometheus.CounterVec

	// Book metrics
	bookRevaluationLatency prometheus.Histogram
	bookSizeGauge          prometheus.Gauge
	bookPVGauge            *prometheus.GaugeVec
	bookCS01Gauge          *prometheus.GaugeVec

	// Kafka metrics
	kafkaMessagesCounter *prometheus.CounterVec
	breakerStateGauge    *prometheus.GaugeVec

	// Websocket metrics
	wsClientsGauge prometheus.Gauge
}

// NewRecorder creates a recorder registering every metric on reg. A nil reg
// uses the default Prometheus registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cds_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cds_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		// Pricing metrics
		pricingCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cds_pricing_requests_total",
				Help: "The total number of pricer invocations",
			},
			[]string{"operation", "formula"},
		),
		pricingLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cds_pricing_latency_seconds",
				Help:    "Pricer latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // From 10us to ~0.3s
			},
			[]string{"operation", "formula"},
		),
		pricingErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cds_pricing_errors_total",
				Help: "The total number of failed pricer invocations",
			},
			[]string{"operation", "error_type"},
		),

		// Book metrics
		bookRevaluationLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cds_book_revaluation_seconds",
				Help:    "Full book revaluation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // From 1ms to ~8s
			},
		),
		bookSizeGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cds_book_trades",
				Help: "Number of trades in the book",
			},
		),
		bookPVGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cds_book_present_value",
				Help: "Total present value of the book by currency",
			},
			[]string{"currency"},
		),
		bookCS01Gauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cds_book_parallel_cs01",
				Help: "Total parallel CS01 of the book by currency",
			},
			[]string{"currency"},
		),

		// Kafka metrics
		kafkaMessagesCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cds_kafka_messages_total",
				Help: "Kafka messages handled by the pricing worker",
			},
			[]string{"topic", "outcome"},
		),
		breakerStateGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cds_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),

		// Websocket metrics
		wsClientsGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cds_websocket_clients",
				Help: "Connected websocket clients",
			},
		),
	}
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordPricing records one pricer invocation
func (r *Recorder) RecordPricing(operation, formula string, latency time.Duration) {
	r.pricingCounter.WithLabelValues(operation, formula).Inc()
	r.pricingLatency.WithLabelValues(operation, formula).Observe(latency.Seconds())
}

// RecordPricingError records a failed pricer invocation
func (r *Recorder) RecordPricingError(operation, errorType string) {
	r.pricingErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordBookRevaluation records a full book revaluation
func (r *Recorder) RecordBookRevaluation(trades int, latency time.Duration) {
	r.bookSizeGauge.Set(float64(trades))
	r.bookRevaluationLatency.Observe(latency.Seconds())
}

// RecordBookTotals records the book totals of one currency
func (r *Recorder) RecordBookTotals(currency string, pv, cs01 float64) {
	r.bookPVGauge.WithLabelValues(currency).Set(pv)
	r.bookCS01Gauge.WithLabelValues(currency).Set(cs01)
}

// RecordKafkaMessage records a consumed or produced message
func (r *Recorder) RecordKafkaMessage(topic, outcome string) {
	r.kafkaMessagesCounter.WithLabelValues(topic, outcome).Inc()
}

// RecordBreakerState records the state of a circuit breaker
func (r *Recorder) RecordBreakerState(name string, state int) {
	r.breakerStateGauge.WithLabelValues(name).Set(float64(state))
}

// SetWebsocketClients records the number of connected websocket clients
func (r *Recorder) SetWebsocketClients(n int) {
	r.wsClientsGauge.Set(float64(n))
}
