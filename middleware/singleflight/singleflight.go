// Package singleflight collapses concurrent identical GET requests into one.
package singleflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/cespare/xxhash"
	clientErrors "github.com/jaxron/listgen/pkg/client/errors"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/client/middleware"
	"golang.org/x/sync/singleflight"
)

var ErrRequestFailed = errors.New("request failed")

// SingleFlightMiddleware deduplicates concurrent identical GET requests. The
// shared response body is buffered and every caller receives its own copy.
type SingleFlightMiddleware struct {
	sfGroup *singleflight.Group
	logger  logger.Logger
}

// snapshot is the buffered response shared between callers.
type snapshot struct {
	resp *http.Response
	body []byte
}

// New creates a new SingleFlightMiddleware instance.
func New() *SingleFlightMiddleware {
	return &SingleFlightMiddleware{
		sfGroup: &singleflight.Group{},
		logger:  &logger.NoOpLogger{},
	}
}

// Process applies the singleflight pattern before passing the request to the next middleware.
func (m *SingleFlightMiddleware) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return next(ctx, httpClient, req)
	}

	key := generateRequestKey(req)

	result, err, shared := m.sfGroup.Do(key, func() (interface{}, error) {
		resp, err := next(ctx, httpClient, req)
		if err != nil {
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", clientErrors.ErrNetwork, err)
		}
		return &snapshot{resp: resp, body: body}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if shared {
		m.logger.WithFields(logger.String("url", req.URL.String())).Debug("Shared in-flight response")
	}

	snap, ok := result.(*snapshot)
	if !ok {
		return nil, clientErrors.ErrUnreachable
	}

	resp := *snap.resp
	resp.Header = snap.resp.Header.Clone()
	resp.Body = io.NopCloser(bytes.NewReader(snap.body))
	return &resp, nil
}

// generateRequestKey hashes the method, URL and headers (excluding Authorization).
func generateRequestKey(req *http.Request) string {
	h := xxhash.New()
	_, _ = io.WriteString(h, req.Method+" "+req.URL.String())
	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		if key != "Authorization" {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		_, _ = io.WriteString(h, key+fmt.Sprint(req.Header[key]))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// SetLogger sets the logger for the middleware.
func (m *SingleFlightMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
