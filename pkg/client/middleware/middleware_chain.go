package middleware

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
)

// Chain represents an ordered chain of middleware. The first middleware added
// is the outermost one.
type Chain struct {
	middlewares []Middleware
	logger      logger.Logger
}

// NewChain creates a new middleware chain.
func NewChain(l logger.Logger, middlewares ...Middleware) *Chain {
	c := &Chain{
		middlewares: nil,
		logger:      l,
	}
	c.Then(middlewares...)
	return c
}

// Len returns the number of middlewares in the chain.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Middlewares returns the slice of middlewares.
func (c *Chain) Middlewares() []Middleware {
	return c.middlewares
}

// Then appends middleware to the chain. A middleware whose type is already in
// the chain replaces the existing one in place.
func (c *Chain) Then(middlewares ...Middleware) {
	for _, m := range middlewares {
		m.SetLogger(c.logger)

		replaced := false
		for i, existing := range c.middlewares {
			if reflect.TypeOf(existing) == reflect.TypeOf(m) {
				c.middlewares[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			c.middlewares = append(c.middlewares, m)
		}
	}
}

// Process runs the request through all middleware in the chain.
func (c *Chain) Process(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
	// If no middlewares are defined, perform the request immediately
	if len(c.middlewares) == 0 {
		return c.performRequest(ctx, httpClient, req)
	}

	c.logMiddlewareChain()
	return c.processMiddleware(ctx, httpClient, req, 0)
}

// logMiddlewareChain logs the available middleware in the chain.
func (c *Chain) logMiddlewareChain() {
	for i, m := range c.middlewares {
		c.logger.WithFields(
			logger.Int("index", i),
			logger.String("type", reflect.TypeOf(m).String()),
		).Debug("Middleware in chain")
	}
}

// processMiddleware recursively applies each middleware in the chain.
func (c *Chain) processMiddleware(ctx context.Context, httpClient *http.Client, req *http.Request, index int) (*http.Response, error) {
	// If we've reached the end of the middleware chain, perform the request
	if index == len(c.middlewares) {
		return c.performRequest(ctx, httpClient, req)
	}

	// Otherwise, apply the middleware and continue
	return c.middlewares[index].Process(ctx, httpClient, req, func(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
		return c.processMiddleware(ctx, client, req, index+1)
	})
}

// performRequest executes the actual HTTP request.
func (c *Chain) performRequest(ctx context.Context, httpClient *http.Client, req *http.Request) (*http.Response, error) {
	c.logger.WithFields(
		logger.String("method", req.Method),
		logger.String("url", req.URL.String()),
		logger.Int("len_headers", len(req.Header)),
	).Debug("Request")

	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", errors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrNetwork, err)
	}

	// Check for non-ok status codes
	if resp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("%w: %d", errors.ErrBadStatus, resp.StatusCode)
	}

	c.logger.WithFields(
		logger.Int("status", resp.StatusCode),
		logger.Int("len_headers", len(resp.Header)),
	).Debug("Response")

	return resp, nil
}

// SetLogger updates the logger for all middleware in the chain.
func (c *Chain) SetLogger(l logger.Logger) {
	for _, m := range c.middlewares {
		m.SetLogger(l)
	}
	c.logger = l
}
