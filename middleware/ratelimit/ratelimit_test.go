package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaxron/listgen/middleware/ratelimit"
	"github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMiddleware(t *testing.T) {
	t.Parallel()

	okHandler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK}, nil
	}

	makeRequest := func(m *ratelimit.RateLimiterMiddleware, ctx context.Context, url string) error {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		_, err := m.Process(ctx, &http.Client{}, req, okHandler)
		return err
	}

	t.Run("Burst allows multiple requests", func(t *testing.T) {
		t.Parallel()

		burst := 3
		middleware := ratelimit.New(1.0, burst)
		middleware.SetLogger(logger.NewBasicLogger())

		// Burst number of requests should succeed immediately
		for i := 0; i < burst; i++ {
			require.NoError(t, makeRequest(middleware, context.Background(), "http://example.com"))
		}

		// The next request should be rate limited
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := makeRequest(middleware, ctx, "http://example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrTimeout)
	})

	t.Run("Waits for the next token", func(t *testing.T) {
		t.Parallel()

		requestsPerSecond := 20.0
		middleware := ratelimit.New(requestsPerSecond, 1)

		require.NoError(t, makeRequest(middleware, context.Background(), "http://example.com"))

		start := time.Now()
		require.NoError(t, makeRequest(middleware, context.Background(), "http://example.com"))
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("Hosts are limited independently", func(t *testing.T) {
		t.Parallel()

		middleware := ratelimit.New(0.5, 1)

		require.NoError(t, makeRequest(middleware, context.Background(), "http://a.example.com"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		require.NoError(t, makeRequest(middleware, ctx, "http://b.example.com"))
		require.ErrorIs(t, makeRequest(middleware, ctx, "http://a.example.com"), errors.ErrTimeout)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		t.Parallel()

		middleware := ratelimit.New(1.0, 1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := makeRequest(middleware, ctx, "http://example.com")
		require.ErrorIs(t, err, context.Canceled)
	})
}
