// Package proxy rotates outgoing requests across a list of HTTP proxies.
package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
)

var ErrInvalidTransport = errors.New("invalid transport")

type contextKey struct{}

// WithSkipProxy marks the request context so the proxy middleware sends it directly.
func WithSkipProxy(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, true)
}

// ProxyMiddleware manages proxy rotation for HTTP requests.
type ProxyMiddleware struct {
	state   atomic.Pointer[proxyState]
	current atomic.Uint64
	logger  logger.Logger
}

type proxyState struct {
	proxies    []*url.URL
	transports []*http.Transport
}

// New creates a new ProxyMiddleware instance. Transports are built once per
// proxy so connections are reused between requests.
func New(proxies []*url.URL) (*ProxyMiddleware, error) {
	m := &ProxyMiddleware{
		logger: &logger.NoOpLogger{},
	}
	if err := m.UpdateProxies(proxies); err != nil {
		return nil, err
	}
	return m, nil
}

// Process applies proxy logic before passing the request to the next middleware.
func (m *ProxyMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	if skip, ok := ctx.Value(contextKey{}).(bool); ok && skip {
		m.logger.Debug("Skipping proxy for this request")
		return next(ctx, httpClient, req)
	}

	state := m.state.Load()
	proxyLen := len(state.proxies)
	if proxyLen == 0 {
		return next(ctx, httpClient, req)
	}

	current := m.current.Add(1) - 1
	index := int(current % uint64(proxyLen)) // #nosec G115

	m.logger.WithFields(logger.String("proxy", state.proxies[index].Host)).Debug("Using proxy")

	// The client is shared across requests, so it is copied rather than mutated
	proxied := &http.Client{
		Transport:     state.transports[index],
		CheckRedirect: httpClient.CheckRedirect,
		Jar:           httpClient.Jar,
		Timeout:       httpClient.Timeout,
	}

	return next(ctx, proxied, req)
}

// UpdateProxies replaces the list of proxies at runtime.
func (m *ProxyMiddleware) UpdateProxies(proxies []*url.URL) error {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return ErrInvalidTransport
	}

	transports := make([]*http.Transport, len(proxies))
	for i, proxy := range proxies {
		transport := base.Clone()
		transport.Proxy = http.ProxyURL(proxy)
		transports[i] = transport
	}

	m.state.Store(&proxyState{proxies: proxies, transports: transports})
	m.current.Store(0)

	m.logger.WithFields(logger.Int("proxy_count", len(proxies))).Debug("Proxies updated")
	return nil
}

// ProxyCount returns the current number of proxies in the list.
func (m *ProxyMiddleware) ProxyCount() int {
	return len(m.state.Load().proxies)
}

// SetLogger sets the logger for the middleware.
func (m *ProxyMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
