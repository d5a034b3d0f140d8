// Package cache provides a response cache middleware backed by a pluggable Store.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
)

// Store persists encoded cache entries. Get returns errors.ErrCacheMiss when
// the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedResponse represents the structure of a cached HTTP response.
type CachedResponse struct {
	Status        string      `json:"status"`
	StatusCode    int         `json:"statusCode"`
	Header        http.Header `json:"header"`
	Body          []byte      `json:"body"`
	ContentLength int64       `json:"contentLength"`
}

// CacheMiddleware serves GET responses from a Store. Requests whose context
// is marked with middleware.WithSkipCache are always sent live; their fresh
// responses are still stored.
type CacheMiddleware struct {
	store      Store
	logger     logger.Logger
	expiration time.Duration
	onLookup   func(hit bool)
}

// New creates a new CacheMiddleware instance.
func New(store Store, expiration time.Duration) *CacheMiddleware {
	return &CacheMiddleware{
		store:      store,
		logger:     &logger.NoOpLogger{},
		expiration: expiration,
		onLookup:   func(bool) {},
	}
}

// OnLookup registers fn to be called after every cache lookup with its result.
// Skipped lookups are not reported.
func (m *CacheMiddleware) OnLookup(fn func(hit bool)) {
	m.onLookup = fn
}

// Process implements the middleware.Middleware interface.
func (m *CacheMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return next(ctx, httpClient, req)
	}

	key := GenerateKey(req)
	log := m.logger.WithFields(logger.String("key", key), logger.String("url", req.URL.String()))

	if middleware.SkipCache(ctx) {
		log.Debug("Cache skipped")
	} else if cachedResp, err := m.getFromCache(ctx, key); err == nil {
		log.Debug("Cache hit")
		m.onLookup(true)
		return ReconstructResponse(cachedResp), nil
	} else {
		log.WithFields(logger.Err(err)).Debug("Cache miss")
		m.onLookup(false)
	}

	resp, err := next(ctx, httpClient, req)
	if err != nil {
		return resp, err
	}

	// Only cache successful responses
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		m.cacheResponse(ctx, key, resp, bodyBytes)
	}

	return resp, nil
}

// SetLogger sets the logger for the middleware.
func (m *CacheMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}

// getFromCache retrieves and decodes a cached response.
func (m *CacheMiddleware) getFromCache(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var cachedResp CachedResponse
	if err := sonic.Unmarshal(data, &cachedResp); err != nil {
		return nil, err
	}

	return &cachedResp, nil
}

// cacheResponse stores the HTTP response. Failures are logged, never returned.
func (m *CacheMiddleware) cacheResponse(ctx context.Context, key string, resp *http.Response, bodyBytes []byte) {
	cachedResp := CachedResponse{
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		Body:          bodyBytes,
		ContentLength: int64(len(bodyBytes)),
	}

	data, err := sonic.Marshal(cachedResp)
	if err != nil {
		m.logger.WithFields(logger.Err(err)).Error("Failed to marshal cached response")
		return
	}

	if err := m.store.Set(context.WithoutCancel(ctx), key, data, m.expiration); err != nil {
		m.logger.WithFields(logger.Err(err)).Error("Failed to cache response")
	}
}

// GenerateKey derives the cache key from the request method and URL.
// Headers are left out so that the same document is shared across clients
// with different user agents.
func GenerateKey(req *http.Request) string {
	h := xxhash.New()
	_, _ = h.Write([]byte(req.Method))
	_, _ = h.Write([]byte{' '})
	_, _ = h.Write([]byte(req.URL.String()))
	return fmt.Sprintf("listgen:cache:%x", h.Sum64())
}

// ReconstructResponse creates an http.Response from a cached response.
func ReconstructResponse(cachedResp *CachedResponse) *http.Response {
	return &http.Response{
		Status:        cachedResp.Status,
		StatusCode:    cachedResp.StatusCode,
		Header:        cachedResp.Header,
		Body:          io.NopCloser(bytes.NewReader(cachedResp.Body)),
		ContentLength: cachedResp.ContentLength,
	} //exhaustruct:ignore
}
