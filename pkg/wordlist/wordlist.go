// Package wordlist fetches generated word lists for registered query definitions.
package wordlist

import (
	"context"
	"fmt"
	"io"

	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/lines"
	"github.com/jaxron/listgen/pkg/query"
)

// Fetcher retrieves a document by URL. *client.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, useCache bool) (io.ReadCloser, error)
}

// Service resolves definitions to URLs and returns the lines of the fetched documents.
type Service struct {
	builder     *query.URLBuilder
	fetcher     Fetcher
	startMarker string
	logger      logger.Logger
}

// Option is a function type that modifies the Service configuration.
type Option func(*Service)

// WithStartMarker sets the marker after which document lines are returned.
func WithStartMarker(marker string) Option {
	return func(s *Service) {
		s.startMarker = marker
	}
}

// WithLogger sets the logger for the Service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a new Service using lines.DefaultStartMarker.
func NewService(builder *query.URLBuilder, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		builder:     builder,
		fetcher:     fetcher,
		startMarker: lines.DefaultStartMarker,
		logger:      &logger.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// URL returns the request URL for the definition.
func (s *Service) URL(definitionID string) (string, error) {
	return s.builder.Build(definitionID)
}

// Lines fetches the document for the definition and returns its payload lines.
func (s *Service) Lines(ctx context.Context, definitionID string, useCache bool) ([]string, error) {
	url, err := s.builder.Build(definitionID)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(
		logger.String("definition", definitionID),
		logger.String("url", url),
		logger.Bool("use_cache", useCache),
	)
	log.Debug("Fetching word list")

	body, err := s.fetcher.Fetch(ctx, url, useCache)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", definitionID, err)
	}
	defer body.Close()

	result, err := lines.Extract(body, s.startMarker)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", definitionID, err)
	}

	log.WithFields(logger.Int("lines", len(result))).Info("Fetched word list")
	return result, nil
}
