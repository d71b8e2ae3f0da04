package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the gateway's prometheus registry and collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	streamChunks  prometheus.Counter
}

// New builds a self-contained registry; nothing is registered globally.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollama_gateway_requests_total",
			Help: "Total number of HTTP requests handled by the gateway.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ollama_gateway_request_duration_seconds",
			Help:    "Wall-clock duration of handled requests.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"method", "route"}),
		streamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ollama_gateway_stream_chunks_total",
			Help: "Total number of content chunks emitted on streaming responses.",
		}),
	}
	r.MustRegister(m.requestsTotal, m.duration, m.streamChunks)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AddStreamChunks records content chunks emitted by a streaming response.
func (m *Metrics) AddStreamChunks(n int) {
	if n > 0 {
		m.streamChunks.Add(float64(n))
	}
}

// Middleware records one observation per handled request.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method

			m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func statusOf(err error) int {
	type statusError interface {
		StatusCode() int
	}
	if se, ok := err.(statusError); ok {
		return se.StatusCode()
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}
