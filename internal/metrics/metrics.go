// Package metrics exposes the Prometheus collectors and the gin middleware
// that feeds the HTTP request metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the application collectors. Constructed once in main with
// its own registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	ClockIns       prometheus.Counter
	ClockOuts      prometheus.Counter
	LeaveDecisions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workpulse",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workpulse",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ClockIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "workpulse",
			Name:      "clock_ins_total",
			Help:      "Successful clock-in operations.",
		}),
		ClockOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "workpulse",
			Name:      "clock_outs_total",
			Help:      "Successful clock-out operations.",
		}),
		LeaveDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workpulse",
			Name:      "leave_decisions_total",
			Help:      "Leave request decisions by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.ClockIns, m.ClockOuts, m.LeaveDecisions,
	)
	return m
}

// CountClockIn increments the clock-in counter. Safe on a nil receiver so
// handlers work without metrics wired.
func (m *Metrics) CountClockIn() {
	if m != nil {
		m.ClockIns.Inc()
	}
}

// CountClockOut increments the clock-out counter.
func (m *Metrics) CountClockOut() {
	if m != nil {
		m.ClockOuts.Inc()
	}
}

// CountLeaveDecision increments the decision counter for an outcome.
func (m *Metrics) CountLeaveDecision(outcome string) {
	if m != nil {
		m.LeaveDecisions.WithLabelValues(outcome).Inc()
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
