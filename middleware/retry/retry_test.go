package retry_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jaxron/listgen/middleware/retry"
	"github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingBody records whether it was closed.
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func badStatus(code int, body *trackingBody) (*http.Response, error) {
	return &http.Response{StatusCode: code, Body: body}, fmt.Errorf("%w: %d", errors.ErrBadStatus, code)
}

func TestRetryMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("Successful request without retries", func(t *testing.T) {
		t.Parallel()

		middleware := retry.New(3, 10*time.Millisecond, 100*time.Millisecond)
		middleware.SetLogger(logger.NewBasicLogger())

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Retry on temporary error", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		maxAttempts := uint64(3)
		middleware := retry.New(maxAttempts, 10*time.Millisecond, 100*time.Millisecond)
		middleware.SetLogger(logger.NewBasicLogger())

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			if attempts < int(maxAttempts) {
				return nil, errors.ErrTemporary
			}
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int(maxAttempts), attempts)
	})

	t.Run("Fail after max retries", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		maxAttempts := uint64(3)
		middleware := retry.New(maxAttempts, 10*time.Millisecond, 100*time.Millisecond)
		middleware.SetLogger(logger.NewBasicLogger())

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			return nil, errors.ErrTemporary
		}

		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, retry.ErrRetryFailed)
		assert.Equal(t, int(maxAttempts)+1, attempts) // The middleware makes one more attempt than maxAttempts
	})

	t.Run("No retry on permanent error", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		middleware := retry.New(3, 10*time.Millisecond, 100*time.Millisecond)
		middleware.SetLogger(logger.NewBasicLogger())

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			return nil, errors.ErrPermanent
		}

		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, retry.ErrRetryFailed)
		assert.ErrorIs(t, err, errors.ErrPermanent)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Retry on server error and close discarded bodies", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		bodies := []*trackingBody{}
		middleware := retry.New(3, time.Millisecond, 10*time.Millisecond)

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			if attempts < 3 {
				body := &trackingBody{Reader: strings.NewReader("oops")}
				bodies = append(bodies, body)
				return badStatus(http.StatusBadGateway, body)
			}
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 3, attempts)
		for _, b := range bodies {
			assert.True(t, b.closed)
		}
	})

	t.Run("No retry on client error", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		middleware := retry.New(3, time.Millisecond, 10*time.Millisecond)

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			return badStatus(http.StatusNotFound, &trackingBody{Reader: strings.NewReader("")})
		}

		_, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.ErrorIs(t, err, errors.ErrBadStatus)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Retry on too many requests", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		middleware := retry.New(1, time.Millisecond, 10*time.Millisecond)

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			return badStatus(http.StatusTooManyRequests, &trackingBody{Reader: strings.NewReader("")})
		}

		_, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.ErrorIs(t, err, retry.ErrRetryFailed)
		assert.Equal(t, 2, attempts)
	})

	t.Run("Respect context cancellation", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		middleware := retry.New(5, 10*time.Millisecond, 100*time.Millisecond)
		middleware.SetLogger(logger.NewBasicLogger())

		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return nil, errors.ErrTemporary
		}

		resp, err := middleware.Process(ctx, &http.Client{}, req, handler)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, retry.ErrRetryFailed)
		assert.Equal(t, 2, attempts)
	})
}
