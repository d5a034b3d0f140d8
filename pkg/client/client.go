// Package client provides HTTP request handling functionality with various middleware options.
package client

import (
	"context"
	"io"
	"net/http"

	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
)

// Client manages HTTP requests with various middleware options.
type Client struct {
	middlewareChain *middleware.Chain
	httpClient      *http.Client
}

// NewClient creates a new Client instance with default settings.
// The default http.Client has no timeout; use WithTimeout or a context deadline.
func NewClient(opts ...Option) *Client {
	client := &Client{
		middlewareChain: middleware.NewChain(&logger.NoOpLogger{}),
		httpClient: &http.Client{
			Transport:     http.DefaultTransport,
			CheckRedirect: nil,
			Jar:           nil,
			Timeout:       0,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do performs an HTTP request with the specified options.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.middlewareChain.Process(ctx, c.httpClient, req)
}

// Fetch performs a GET request for url and returns the response body, which
// the caller must close. When useCache is false any cache middleware is
// bypassed and the document is retrieved live.
func (c *Client) Fetch(ctx context.Context, url string, useCache bool) (io.ReadCloser, error) {
	if !useCache {
		ctx = middleware.WithSkipCache(ctx)
	}

	resp, err := c.NewRequest().
		Method(http.MethodGet).
		URL(url).
		Do(ctx)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}

	return resp.Body, nil
}
