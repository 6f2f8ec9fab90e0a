// Package metrics exposes reconciliation and webhook counters to Prometheus.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxLabelLen = 64

func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	reconcileTotal *prometheus.CounterVec
	webhookTotal   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		reconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kursio",
				Subsystem: "subscription",
				Name:      "reconcile_total",
				Help:      "Subscription reconciliations by status source and outcome",
			},
			[]string{"source", "outcome"},
		),
		webhookTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kursio",
				Subsystem: "billing",
				Name:      "webhook_events_total",
				Help:      "Billing webhook deliveries by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kursio",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code class",
			},
			[]string{"route", "method", "code"},
		),
	}

	reg.MustRegister(
		m.reconcileTotal,
		m.webhookTotal,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveReconcile(source, outcome string) {
	m.reconcileTotal.WithLabelValues(sanitizeLabel(source), sanitizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	m.webhookTotal.WithLabelValues(sanitizeLabel(eventType), sanitizeLabel(outcome)).Inc()
}

// ObserveRequest counts a finished request; code is bucketed to its class ("2xx").
func (m *Metrics) ObserveRequest(route, method string, code int) {
	class := "unknown"
	if code >= 100 && code < 600 {
		class = string(rune('0'+code/100)) + "xx"
	}
	m.httpRequests.WithLabelValues(sanitizeLabel(route), method, class).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
