// Package middleware defines the request pipeline the client runs every fetch through.
package middleware

import (
	"context"
	"net/http"

	"github.com/jaxron/listgen/pkg/client/logger"
)

// NextFunc is a function type that represents the next middleware in the chain.
type NextFunc func(context.Context, *http.Client, *http.Request) (*http.Response, error)

// Middleware interface for all HTTP middleware components.
type Middleware interface {
	Process(ctx context.Context, httpClient *http.Client, req *http.Request, next NextFunc) (*http.Response, error)
	SetLogger(l logger.Logger)
}

type skipCacheKey struct{}

// WithSkipCache marks ctx so that cache middleware bypasses its store and
// performs a live request. The fresh response is still written back.
func WithSkipCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipCacheKey{}, true)
}

// SkipCache reports whether ctx was marked with WithSkipCache.
func SkipCache(ctx context.Context) bool {
	skip, ok := ctx.Value(skipCacheKey{}).(bool)
	return ok && skip
}
