package postdesk

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// appMetrics holds the collectors served on /metrics. A nil *appMetrics
// records nothing.
type appMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	saves    *prometheus.CounterVec
	uploads  *prometheus.CounterVec
}

// newAppMetrics registers the collectors. openDrafts backs the editor
// drafts gauge.
func newAppMetrics(openDrafts func() int) *appMetrics {
	m := &appMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postdesk_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postdesk_posts_saved_total",
			Help: "Successful post writes by operation.",
		}, []string{"op"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postdesk_uploads_total",
			Help: "Image uploads by result.",
		}, []string{"result"}),
	}
	drafts := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "postdesk_editor_drafts",
		Help: "Editor documents currently open.",
	}, func() float64 { return float64(openDrafts()) })
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		drafts,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.saves, m.uploads,
	)
	return m
}

func (m *appMetrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
		m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}

func (m *appMetrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
}

func (m *appMetrics) postSaved(op string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(op).Inc()
}

func (m *appMetrics) uploaded(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}
