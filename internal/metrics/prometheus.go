// Package metrics provides Prometheus metrics for the broker simulator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	operationsTotal  *prometheus.CounterVec
	injectedFailures *prometheus.CounterVec

	tasksInFlight prometheus.Gauge
	tasksTotal    *prometheus.CounterVec
	taskPanics    prometheus.Counter

	eventsPublished *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry, together with the Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgie_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgie_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, including simulated latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "budgie_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgie_operations_total",
				Help: "Broker operations by type, mode and outcome",
			},
			[]string{"operation", "mode", "outcome"},
		),
		injectedFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgie_injected_failures_total",
				Help: "Operations failed by a configured fail rule",
			},
			[]string{"operation", "status"},
		),
		tasksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "budgie_async_tasks_in_flight",
				Help: "Asynchronous tasks scheduled and not yet finished",
			},
		),
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgie_async_tasks_total",
				Help: "Finished asynchronous tasks by operation and final state",
			},
			[]string{"operation", "state"},
		),
		taskPanics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "budgie_async_task_panics_total",
				Help: "Asynchronous tasks that ended with an unexpected panic",
			},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgie_events_published_total",
				Help: "Operation events handed to the publisher by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.requestsInFlight,
		m.operationsTotal,
		m.injectedFailures,
		m.tasksInFlight,
		m.tasksTotal,
		m.taskPanics,
		m.eventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) IncRequestsInFlight() {
	if m != nil {
		m.requestsInFlight.Inc()
	}
}

func (m *Metrics) DecRequestsInFlight() {
	if m != nil {
		m.requestsInFlight.Dec()
	}
}

func (m *Metrics) RecordOperation(operation, mode, outcome string) {
	if m != nil {
		m.operationsTotal.WithLabelValues(operation, mode, outcome).Inc()
	}
}

func (m *Metrics) RecordInjectedFailure(operation string, status int) {
	if m != nil {
		m.injectedFailures.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	}
}

func (m *Metrics) TaskStarted() {
	if m != nil {
		m.tasksInFlight.Inc()
	}
}

func (m *Metrics) TaskFinished(operation, state string) {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
	m.tasksTotal.WithLabelValues(operation, state).Inc()
}

func (m *Metrics) TaskPanicked() {
	if m != nil {
		m.taskPanics.Inc()
	}
}

func (m *Metrics) RecordPublish(result string) {
	if m != nil {
		m.eventsPublished.WithLabelValues(result).Inc()
	}
}
