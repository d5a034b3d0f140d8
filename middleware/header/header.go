// Package header sets static request headers such as the User-Agent.
package header

import (
	"context"
	"net/http"

	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
)

// HeaderMiddleware adds headers to HTTP requests.
type HeaderMiddleware struct {
	headers http.Header
	logger  logger.Logger
}

// New creates a new HeaderMiddleware instance. Headers already present on a
// request are left untouched.
func New(headers http.Header) *HeaderMiddleware {
	return &HeaderMiddleware{
		headers: headers.Clone(),
		logger:  &logger.NoOpLogger{},
	}
}

// WithUserAgent is a shorthand for a middleware that only sets User-Agent.
func WithUserAgent(userAgent string) *HeaderMiddleware {
	return New(http.Header{"User-Agent": []string{userAgent}})
}

// Process applies headers to the request before passing it to the next middleware.
func (m *HeaderMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	for key, values := range m.headers {
		if req.Header.Get(key) != "" {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return next(ctx, httpClient, req)
}

// SetLogger sets the logger for the middleware.
func (m *HeaderMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
