// Package retry retries temporary fetch failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	clientErrors "github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
)

var ErrRetryFailed = errors.New("retry failed")

// RetryMiddleware implements retry logic for HTTP requests with exponential backoff.
type RetryMiddleware struct {
	maxAttempts     uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          logger.Logger
}

// New creates a new RetryMiddleware instance. maxAttempts counts retries, so a
// request is sent at most maxAttempts+1 times.
func New(maxAttempts uint64, initialInterval, maxInterval time.Duration) *RetryMiddleware {
	return &RetryMiddleware{
		maxAttempts:     maxAttempts,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
		logger:          &logger.NoOpLogger{},
	}
}

// Process applies retry logic before passing the request to the next middleware.
func (m *RetryMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	expBackoff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(m.initialInterval),
		backoff.WithMaxInterval(m.maxInterval),
	), m.maxAttempts)
	backoffStrategy := backoff.WithContext(expBackoff, ctx)

	var resp *http.Response
	attempt := 0

	retryErr := backoff.RetryNotify(
		func() error {
			attempt++
			var err error
			resp, err = next(ctx, httpClient, req)
			if err == nil {
				return nil
			}

			// The response of a failed attempt is never handed to the caller
			status := 0
			if resp != nil {
				status = resp.StatusCode
				if resp.Body != nil {
					resp.Body.Close()
				}
				resp = nil
			}
			return m.classify(status, err)
		},
		backoffStrategy,
		func(err error, duration time.Duration) {
			m.logger.WithFields(
				logger.Err(err),
				logger.Int("attempt", attempt),
				logger.Duration("retry_in", duration),
				logger.String("url", req.URL.String()),
			).Warn("Retrying request")
		},
	)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetryFailed, retryErr)
	}

	return resp, nil
}

// classify decides whether err is worth another attempt. A 4xx status other
// than 429 is final since the same request will fail the same way.
func (m *RetryMiddleware) classify(status int, err error) error {
	if !clientErrors.IsTemporary(err) {
		return backoff.Permanent(err)
	}
	if errors.Is(err, clientErrors.ErrBadStatus) &&
		status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

// SetLogger sets the logger for the middleware.
func (m *RetryMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
