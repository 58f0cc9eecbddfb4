package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

// Metrics holds the Prometheus metrics of the logsink service. It implements
// logging.Observer so a Dispatcher can record every delivery.
type Metrics struct {
	registry *prometheus.Registry

	// Delivery outcomes by handler and result
	Deliveries *prometheus.CounterVec

	// Delivery latency by handler
	DeliveryDuration *prometheus.HistogramVec

	// Events received over HTTP by outcome (accepted, rejected)
	EventsReceived *prometheus.CounterVec
}

// New creates a registry with process and Go runtime collectors and registers
// all logsink metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "logsink_deliveries_total",
			Help: "Total event deliveries by handler and result",
		}, []string{"handler", "result"}),

		DeliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logsink_delivery_duration_seconds",
			Help:    "Duration of a single event delivery by handler",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"handler"}),

		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "logsink_events_received_total",
			Help: "Total events received over HTTP by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveDelivery records one delivery.
func (m *Metrics) ObserveDelivery(handler string, result logging.DispatchResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(handler, result.String()).Inc()
	m.DeliveryDuration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

// IncrementReceived counts an ingested event; outcome is "accepted" or
// "rejected".
func (m *Metrics) IncrementReceived(outcome string) {
	if m != nil {
		m.EventsReceived.WithLabelValues(outcome).Inc()
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
