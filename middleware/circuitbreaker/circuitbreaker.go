// Package circuitbreaker stops sending requests to a failing service for a while.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	clientErrors "github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
	"github.com/sony/gobreaker"
)

// CircuitBreakerMiddleware implements the circuit breaker pattern to prevent cascading failures.
type CircuitBreakerMiddleware struct {
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

// New creates a new CircuitBreakerMiddleware instance. The breaker opens once
// at least 3 requests were seen in an interval and 60% of them failed.
func New(maxRequests uint32, interval, timeout time.Duration) *CircuitBreakerMiddleware {
	m := &CircuitBreakerMiddleware{
		breaker: nil,
		logger:  &logger.NoOpLogger{},
	}

	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "listgen",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.WithFields(
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			).Warn("Circuit breaker state changed")
		},
		// Only temporary failures count against the service
		IsSuccessful: func(err error) bool {
			return err == nil || !clientErrors.IsTemporary(err)
		},
	})

	return m
}

// Process applies the circuit breaker before passing the request to the next middleware.
func (m *CircuitBreakerMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	var resp *http.Response
	_, err := m.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = next(ctx, httpClient, req)
		return nil, err
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return nil, fmt.Errorf("%w: %w", clientErrors.ErrCircuitOpen, err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %w", clientErrors.ErrCircuitExhausted, err)
	default:
		return resp, err
	}
}

// State returns the current breaker state name.
func (m *CircuitBreakerMiddleware) State() string {
	return m.breaker.State().String()
}

// SetLogger sets the logger for the middleware.
func (m *CircuitBreakerMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
