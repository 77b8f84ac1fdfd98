// Package service wires the extraction, splitting, embedding and vector
// store components into the ingestion and retrieval pipelines.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vecta-io/recall/document"
	"github.com/vecta-io/recall/embeddings"
	"github.com/vecta-io/recall/schema"
	"github.com/vecta-io/recall/splitter"
	"github.com/vecta-io/recall/vectordb"
)

const (
	// DefaultConcurrency bounds parallel chunk embedding.
	DefaultConcurrency = 8

	// DefaultSeparator joins retrieved chunk texts into one context string.
	DefaultSeparator = "\n\n"

	// NoContext is returned by Answer when the store holds no relevant
	// entries, so callers can still compose a degraded prompt.
	NoContext = "no relevant context found"
)

// Option configures the Service.
type Option func(*Service)

// WithStore sets the vector store backend.
func WithStore(store vectordb.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithEmbedder sets the embedding client.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = embedder }
}

// WithExtractor overrides the text extractor.
func WithExtractor(extractor document.Extractor) Option {
	return func(s *Service) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithSplitter overrides the chunk splitter.
func WithSplitter(split splitter.Splitter) Option {
	return func(s *Service) {
		if split != nil {
			s.splitter = split
		}
	}
}

// WithChunkSize configures a word-window splitter of the given size.
func WithChunkSize(size int) Option {
	return func(s *Service) { s.splitter = splitter.NewWordSplitter(size) }
}

// WithConcurrency bounds how many chunks are embedded in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSeparator sets the join separator for composed context.
func WithSeparator(separator string) Option {
	return func(s *Service) {
		if separator != "" {
			s.separator = separator
		}
	}
}

// WithLogger sets the structured logger (nil keeps slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service runs the ingestion and retrieval pipelines against one embedder
// and one vector store backend, both chosen at construction time. It keeps
// no state between calls beyond what the store itself persists, so it is
// safe for concurrent use to the extent the backends are.
type Service struct {
	extractor   document.Extractor
	splitter    splitter.Splitter
	embedder    embeddings.Embedder
	store       vectordb.Store
	concurrency int
	separator   string
	logger      *slog.Logger
}

// New creates a Service. An embedder and a store are required.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		extractor:   document.NewPDFExtractor(),
		splitter:    splitter.NewWordSplitter(splitter.DefaultChunkSize),
		concurrency: DefaultConcurrency,
		separator:   DefaultSeparator,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("service: embedder is required: %w", schema.ErrInvalidArgument)
	}
	if s.store == nil {
		return nil, fmt.Errorf("service: store is required: %w", schema.ErrInvalidArgument)
	}
	return s, nil
}

// Init provisions the store for the embedder's dimension and the cosine
// metric. Idempotent; call once before the first ingestion or query.
func (s *Service) Init(ctx context.Context) error {
	return s.store.EnsureReady(ctx, s.embedder.Dimension(), vectordb.MetricCosine)
}
