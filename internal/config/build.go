package config

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jaxron/listgen/middleware/cache"
	"github.com/jaxron/listgen/middleware/circuitbreaker"
	"github.com/jaxron/listgen/middleware/header"
	"github.com/jaxron/listgen/middleware/metrics"
	"github.com/jaxron/listgen/middleware/proxy"
	"github.com/jaxron/listgen/middleware/ratelimit"
	"github.com/jaxron/listgen/middleware/retry"
	"github.com/jaxron/listgen/middleware/singleflight"
	"github.com/jaxron/listgen/pkg/client"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
	"github.com/jaxron/listgen/pkg/query"
	"github.com/jaxron/listgen/pkg/wordlist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
)

const appName = "listgen"

// Logger builds the configured logger writing to w.
func (c *Config) Logger(w io.Writer) logger.Logger {
	return logger.NewCharmLogger(logger.CharmConfig{
		Level:  logger.Level(c.Log.Level),
		Output: w,
		JSON:   c.Log.JSON,
	})
}

// Middlewares builds the configured middleware, outermost first. Metrics are
// only recorded when reg is not nil. The returned cleanup function releases
// external connections and must be called once the client is no longer used.
func (c *Config) Middlewares(reg prometheus.Registerer) ([]middleware.Middleware, func(), error) {
	var (
		result  []middleware.Middleware
		cleanup = func() {}
		metric  *metrics.MetricsMiddleware
	)

	if reg != nil {
		m, err := metrics.New(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		metric = m
		result = append(result, m)
	}

	store, closeStore, err := c.cacheStore()
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		cleanup = closeStore
		m := cache.New(store, c.Cache.TTL)
		if metric != nil {
			m.OnLookup(metric.ObserveCache)
		}
		result = append(result, m)
	}

	result = append(result, singleflight.New())

	if c.HTTP.Retry.Enabled {
		result = append(result, retry.New(c.HTTP.Retry.MaxAttempts, c.HTTP.Retry.InitialInterval, c.HTTP.Retry.MaxInterval))
	}

	if cb := c.HTTP.CircuitBreaker; cb.Enabled {
		result = append(result, circuitbreaker.New(cb.MaxRequests, cb.Interval, cb.Timeout))
	}

	if rl := c.HTTP.RateLimit; rl.Enabled {
		result = append(result, ratelimit.New(rl.RequestsPerSecond, rl.Burst))
	}

	if headers := c.headers(); len(headers) > 0 {
		result = append(result, header.New(headers))
	}

	if len(c.HTTP.Proxies) > 0 {
		proxies := make([]*url.URL, 0, len(c.HTTP.Proxies))
		for _, raw := range c.HTTP.Proxies {
			u, err := url.Parse(raw)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
			}
			proxies = append(proxies, u)
		}

		m, err := proxy.New(proxies)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		result = append(result, m)
	}

	return result, cleanup, nil
}

// NewClient builds an HTTP client with the configured middleware.
func (c *Config) NewClient(l logger.Logger, reg prometheus.Registerer) (*client.Client, func(), error) {
	middlewares, cleanup, err := c.Middlewares(reg)
	if err != nil {
		return nil, nil, err
	}

	httpClient := client.NewClient(
		client.WithLogger(l),
		client.WithTimeout(c.HTTP.Timeout),
		client.WithMiddleware(middlewares...),
	)
	return httpClient, cleanup, nil
}

// NewService builds the word list service over the configured registries and client.
func (c *Config) NewService(l logger.Logger, reg prometheus.Registerer) (*wordlist.Service, func(), error) {
	specs, defs, err := c.Registries()
	if err != nil {
		return nil, nil, err
	}

	httpClient, cleanup, err := c.NewClient(l, reg)
	if err != nil {
		return nil, nil, err
	}

	builder := query.NewURLBuilder(specs, defs, query.WithLogger(l))
	svc := wordlist.NewService(builder, httpClient,
		wordlist.WithStartMarker(c.Lines.StartMarker),
		wordlist.WithLogger(l),
	)
	return svc, cleanup, nil
}

// CacheDir returns the file backend directory, defaulting to listgen under
// the user cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

func (c *Config) headers() http.Header {
	headers := make(http.Header, len(c.HTTP.Headers)+1)
	for key, value := range c.HTTP.Headers {
		headers.Set(key, value)
	}
	if c.HTTP.UserAgent != "" {
		headers.Set("User-Agent", c.HTTP.UserAgent)
	}
	return headers
}

func (c *Config) cacheStore() (cache.Store, func(), error) {
	switch c.Cache.Backend {
	case CacheMemory:
		return cache.NewMemoryStore(c.Cache.Size, c.Cache.TTL), func() {}, nil
	case CacheFile:
		dir, err := c.CacheDir()
		if err != nil {
			return nil, nil, err
		}
		return cache.NewFileStore(dir), func() {}, nil
	case CacheRedis:
		store, err := cache.DialRedis(rueidis.ClientOption{
			InitAddress: []string{c.Cache.Redis.Address},
			Password:    c.Cache.Redis.Password,
			SelectDB:    c.Cache.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, func() {}, nil
	}
}
