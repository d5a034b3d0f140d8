package singleflight_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaxron/listgen/middleware/singleflight"
	"github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slowHandler(count *int, mu *sync.Mutex) func(context.Context, *http.Client, *http.Request) (*http.Response, error) {
	return func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
		mu.Lock()
		*count++
		mu.Unlock()
		time.Sleep(100 * time.Millisecond) // Simulate work
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("alpha\nbeta\n")),
		}, nil
	}
}

func TestSingleFlightMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("Deduplicate concurrent identical requests", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()
		middleware.SetLogger(logger.NewBasicLogger())

		requestCount := 0
		var mu sync.Mutex
		handler := slowHandler(&requestCount, &mu)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
				resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
				if !assert.NoError(t, err) {
					return
				}
				defer resp.Body.Close()

				// Every caller must be able to read the whole body
				body, err := io.ReadAll(resp.Body)
				assert.NoError(t, err)
				assert.Equal(t, "alpha\nbeta\n", string(body))
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, requestCount, "Expected only one request to be processed")
	})

	t.Run("Different requests are not deduplicated", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		requestCount := 0
		var mu sync.Mutex
		handler := slowHandler(&requestCount, &mu)

		var wg sync.WaitGroup
		urls := []string{"http://example.com/1", "http://example.com/2", "http://example.com/3"}
		for _, url := range urls {
			wg.Add(1)
			go func(url string) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, url, nil)
				resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
				if assert.NoError(t, err) {
					resp.Body.Close()
				}
			}(url)
		}
		wg.Wait()

		assert.Equal(t, len(urls), requestCount, "Expected each different request to be processed")
	})

	t.Run("Non-GET requests pass through", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		body := "test body"
		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			bodyBytes, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			assert.Equal(t, body, string(bodyBytes), "Request body should be readable")
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		req := httptest.NewRequest(http.MethodPost, "http://example.com", strings.NewReader(body))
		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Error handling", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		handler := func(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
			return nil, errors.ErrNetwork
		}

		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := middleware.Process(context.Background(), &http.Client{}, req, handler)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, singleflight.ErrRequestFailed)
		assert.ErrorIs(t, err, errors.ErrNetwork)
	})
}
