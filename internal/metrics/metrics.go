// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the server updates. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	chatsCreated    prometheus.Counter
	chatsDeleted    prometheus.Counter
	messagesSent    *prometheus.CounterVec
	messagesViewed  prometheus.Counter
	decryptFailures prometheus.Counter
	rateLimited     prometheus.Counter
	wsClients       prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siso", Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "siso", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		chatsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siso", Name: "chats_created_total", Help: "Chats created on first contact.",
		}),
		chatsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siso", Name: "chats_deleted_total", Help: "Chats deleted by a participant.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siso", Name: "messages_sent_total", Help: "Messages stored, by content kind.",
		}, []string{"kind"}),
		messagesViewed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siso", Name: "messages_viewed_total", Help: "View-once consumptions.",
		}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siso", Name: "decrypt_failures_total", Help: "Inbox rows replaced by a placeholder.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siso", Name: "rate_limited_total", Help: "Requests rejected by the rate limiter.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "siso", Name: "ws_clients", Help: "Connected notification sockets.",
		}),
	}
	reg.MustRegister(
		m.requests, m.requestDuration, m.chatsCreated, m.chatsDeleted,
		m.messagesSent, m.messagesViewed, m.decryptFailures, m.rateLimited, m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ChatCreated() {
	if m != nil {
		m.chatsCreated.Inc()
	}
}

func (m *Metrics) ChatDeleted() {
	if m != nil {
		m.chatsDeleted.Inc()
	}
}

func (m *Metrics) MessageSent(kind string) {
	if m != nil {
		m.messagesSent.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) MessageViewed() {
	if m != nil {
		m.messagesViewed.Inc()
	}
}

func (m *Metrics) DecryptFailed() {
	if m != nil {
		m.decryptFailures.Inc()
	}
}

func (m *Metrics) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Metrics) WSConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) WSDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}
