// Package ratelimit throttles requests per target host.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	clientErrors "github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
	"golang.org/x/time/rate"
)

// RateLimiterMiddleware keeps one token bucket per request host so that a slow
// generator service is not hammered by a batch of fetches.
type RateLimiterMiddleware struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	logger   logger.Logger
}

// New creates a new RateLimiterMiddleware instance.
func New(requestsPerSecond float64, burst int) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		logger:   &logger.NoOpLogger{},
	}
}

// Process applies rate limiting before passing the request to the next middleware.
func (m *RateLimiterMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	limiter := m.limiterFor(req.URL.Host)

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Wait fails early when the next token would arrive after the deadline
		return nil, fmt.Errorf("%w: %w", clientErrors.ErrTimeout, err)
	}

	return next(ctx, httpClient, req)
}

func (m *RateLimiterMiddleware) limiterFor(host string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, ok := m.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.limiters[host] = limiter
		m.logger.WithFields(logger.String("host", host)).Debug("Created rate limiter")
	}
	return limiter
}

// SetLogger sets the logger for the middleware.
func (m *RateLimiterMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
