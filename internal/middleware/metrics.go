package middleware

import (
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds the HTTP and rate limiter collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rlAllowed prometheus.Counter
	rlBlocked prometheus.Counter
	rlErrors  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, matched route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by method and matched route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rlAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests allowed by the rate limiter",
		}),
		rlBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		}),
		rlErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limiter_errors_total",
			Help: "Counter failures that let requests through",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.rlAllowed,
		m.rlBlocked,
		m.rlErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry so other components can add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records every request. It must wrap the router so the matched
// route path is available after the handler returns.
func (m *Metrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if m == nil {
		return next
	}
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		route, _ := ctx.UserValue(router.MatchedRoutePathParam).(string)
		if route == "" {
			route = "unmatched"
		}
		method := string(ctx.Method())
		m.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) rateLimitAllowed() {
	if m != nil {
		m.rlAllowed.Inc()
	}
}

func (m *Metrics) rateLimitBlocked() {
	if m != nil {
		m.rlBlocked.Inc()
	}
}

func (m *Metrics) rateLimitError() {
	if m != nil {
		m.rlErrors.Inc()
	}
}
