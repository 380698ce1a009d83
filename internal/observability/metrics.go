package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors and the registry they live in.
// The zero value is not usable; a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	AuthEvents   *prometheus.CounterVec
}

// NewMetrics creates a private registry with the Go and process
// collectors plus the staffdesk counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffdesk_http_requests_total",
				Help: "Total number of HTTP requests by route pattern and status",
			},
			[]string{"route", "status"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffdesk_auth_events_total",
				Help: "Total number of register, login and logout attempts by outcome",
			},
			[]string{"event", "outcome"},
		),
	}
	registry.MustRegister(m.HTTPRequests)
	registry.MustRegister(m.AuthEvents)
	return m
}

// TrackActiveSessions registers a gauge that calls count on every scrape.
func (m *Metrics) TrackActiveSessions(count func() float64) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "staffdesk_active_sessions",
			Help: "Number of sessions currently held by the session store",
		},
		count,
	))
}

func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
