package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
	"github.com/jaxron/listgen/pkg/query"
)

// Option is a function type that modifies the Client configuration.
type Option func(*Client)

// WithMiddleware appends middleware to the Client's chain. Middleware runs in
// the order it was added.
func WithMiddleware(middlewares ...middleware.Middleware) Option {
	return func(c *Client) {
		c.middlewareChain.Then(middlewares...)
	}
}

// WithTimeout sets the timeout for the Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger for the Client and its middleware.
func WithLogger(logger logger.Logger) Option {
	return func(c *Client) {
		c.middlewareChain.SetLogger(logger)
	}
}

// Request helps build requests using method chaining.
type Request struct {
	client *Client
	method string
	url    string
	body   []byte
	header http.Header
	query  query.Pairs
}

// NewRequest creates a new Request with default options.
func (c *Client) NewRequest() *Request {
	return &Request{
		client: c,
		method: http.MethodGet,
		url:    "",
		body:   nil,
		header: make(http.Header),
		query:  nil,
	}
}

// Method sets the HTTP method for the request.
func (rb *Request) Method(method string) *Request {
	rb.method = method
	return rb
}

// URL sets the URL for the request.
func (rb *Request) URL(url string) *Request {
	rb.url = url
	return rb
}

// Body sets the body of the request.
func (rb *Request) Body(body []byte) *Request {
	rb.body = body
	return rb
}

// Query appends a query parameter to the request. Empty values are ignored.
func (rb *Request) Query(key, value string) *Request {
	if value != "" {
		rb.query.Add(key, value)
	}
	return rb
}

// Pairs appends already normalized query pairs to the request, keeping their order.
func (rb *Request) Pairs(pairs query.Pairs) *Request {
	rb.query = append(rb.query, pairs...)
	return rb
}

// Header adds a header to the request.
func (rb *Request) Header(key, value string) *Request {
	rb.header.Set(key, value)
	return rb
}

// Build returns the final http.Request for execution. Query pairs are appended
// after any query already present in the URL.
func (rb *Request) Build(ctx context.Context) (*http.Request, error) {
	var bodyReader io.Reader
	if rb.body != nil {
		bodyReader = bytes.NewReader(rb.body)
	}

	req, err := http.NewRequestWithContext(ctx, rb.method, rb.url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrRequestCreation, err)
	}

	if len(rb.query) > 0 {
		if req.URL.RawQuery != "" {
			req.URL.RawQuery += "&"
		}
		req.URL.RawQuery += rb.query.Encode()
	}

	for key, values := range rb.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	return req, nil
}

// Do executes the request and returns the raw http.Response.
func (rb *Request) Do(ctx context.Context) (*http.Response, error) {
	req, err := rb.Build(ctx)
	if err != nil {
		return nil, err
	}

	return rb.client.Do(ctx, req)
}
