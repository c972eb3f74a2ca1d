package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the engine and event bus.
// All record methods are safe to call on a nil receiver, so components can
// run without metrics wired.
type Metrics struct {
	registry *prometheus.Registry

	eventsPublished  *prometheus.CounterVec
	eventsDispatched *prometheus.CounterVec
	handlerFaults    *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	commandDuration  *prometheus.HistogramVec
}

// NewMetrics creates a metrics instance backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mnemonic",
			Name:      "events_published_total",
			Help:      "Domain events enqueued on the event bus.",
		}, []string{"event_type"}),
		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mnemonic",
			Name:      "events_dispatched_total",
			Help:      "Domain events fully dispatched to all handlers.",
		}, []string{"event_type"}),
		handlerFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mnemonic",
			Name:      "handler_faults_total",
			Help:      "Event handlers that panicked during dispatch.",
		}, []string{"event_type"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mnemonic",
			Name:      "event_queue_depth",
			Help:      "Events waiting in the bus queue.",
		}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mnemonic",
			Name:      "command_duration_seconds",
			Help:      "Engine command execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}

	registry.MustRegister(m.eventsPublished, m.eventsDispatched, m.handlerFaults, m.queueDepth, m.commandDuration)
	return m
}

// Handler exposes the registry for a /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventPublished records an enqueued event.
func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// EventDispatched records a fully dispatched event.
func (m *Metrics) EventDispatched(eventType string) {
	if m == nil {
		return
	}
	m.eventsDispatched.WithLabelValues(eventType).Inc()
}

// HandlerFault records a handler panic.
func (m *Metrics) HandlerFault(eventType string) {
	if m == nil {
		return
	}
	m.handlerFaults.WithLabelValues(eventType).Inc()
}

// SetQueueDepth updates the bus queue gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// ObserveCommand records one engine command execution.
func (m *Metrics) ObserveCommand(command string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}
