// Package metrics records Prometheus metrics for every request passing through the client.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "listgen"

// MetricsMiddleware counts requests, observes their latency and tracks cache lookups.
type MetricsMiddleware struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec
	logger      logger.Logger
}

// New creates a new MetricsMiddleware and registers its collectors with reg.
func New(reg prometheus.Registerer) (*MetricsMiddleware, error) {
	m := &MetricsMiddleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by host and status code.",
		}, []string{"host", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by host.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Number of cache lookups by result.",
		}, []string{"result"}),
		logger: &logger.NoOpLogger{},
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.cacheLookup} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Process times the rest of the chain and records the outcome.
func (m *MetricsMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	host := req.URL.Host
	start := time.Now()

	resp, err := next(ctx, httpClient, req)

	m.duration.WithLabelValues(host).Observe(time.Since(start).Seconds())

	code := "error"
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	m.requests.WithLabelValues(host, code).Inc()

	return resp, err
}

// ObserveCache records a cache lookup. It matches the cache middleware's
// lookup hook signature.
func (m *MetricsMiddleware) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.WithLabelValues(result).Inc()
}

// SetLogger sets the logger for the middleware.
func (m *MetricsMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
