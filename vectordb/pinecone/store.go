// Package pinecone implements the vector store capability on a managed,
// Pinecone-style vector index reached over HTTP: a control plane for index
// management and a per-index data plane for upsert and query.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vecta-io/recall/schema"
	"github.com/vecta-io/recall/vectordb"
)

const (
	defaultBaseURL      = "https://api.pinecone.io"
	defaultCloud        = "aws"
	defaultRegion       = "us-east-1"
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
	defaultHTTPTimeout  = 30 * time.Second
)

// Option configures the index.
type Option func(*Index)

// WithBaseURL overrides the control-plane base URL.
func WithBaseURL(baseURL string) Option {
	return func(x *Index) {
		if baseURL != "" {
			x.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(x *Index) {
		if client != nil {
			x.HTTPClient = client
		}
	}
}

// WithRegion sets the serverless cloud/region used when creating the index.
func WithRegion(cloud, region string) Option {
	return func(x *Index) {
		if cloud != "" {
			x.Cloud = cloud
		}
		if region != "" {
			x.Region = region
		}
	}
}

// WithBatchSize sets the upsert batch size.
func WithBatchSize(size int) Option {
	return func(x *Index) {
		if size > 0 {
			x.batchSize = size
		}
	}
}

// WithPollInterval sets the readiness polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(x *Index) {
		if interval > 0 {
			x.pollInterval = interval
		}
	}
}

// Index is a vectordb.Store backed by a managed vector index. The service
// may take time to provision a new index, so EnsureReady polls until the
// index reports ready.
type Index struct {
	BaseURL    string
	APIKey     string
	IndexName  string
	Cloud      string
	Region     string
	HTTPClient *http.Client

	batchSize    int
	pollInterval time.Duration

	mu        sync.Mutex
	host      string
	dimension int
}

// New creates an index client for the given API key and index name.
func New(apiKey, indexName string, opts ...Option) *Index {
	x := &Index{
		BaseURL:      defaultBaseURL,
		APIKey:       apiKey,
		IndexName:    indexName,
		Cloud:        defaultCloud,
		Region:       defaultRegion,
		HTTPClient:   &http.Client{Timeout: defaultHTTPTimeout},
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

var _ vectordb.Store = (*Index)(nil)

// EnsureReady creates the index when absent and waits until the service
// reports it ready. An existing index with a different dimension or metric
// is a configuration conflict, never silently reused.
func (x *Index) EnsureReady(ctx context.Context, dimension int, metric vectordb.Metric) error {
	if dimension < 1 {
		return fmt.Errorf("pinecone: dimension %d: %w", dimension, schema.ErrInvalidArgument)
	}
	if metric == "" {
		metric = vectordb.MetricCosine
	}
	model, err := x.describeIndex(ctx)
	if errors.Is(err, errNotFound) {
		if err := x.createIndex(ctx, dimension, string(metric)); err != nil {
			return err
		}
		model, err = x.describeIndex(ctx)
	}
	if err != nil {
		return err
	}
	for {
		if model.Dimension != dimension || !strings.EqualFold(model.Metric, string(metric)) {
			return fmt.Errorf("pinecone: index %q has dimension=%d metric=%s, want dimension=%d metric=%s: %w",
				x.IndexName, model.Dimension, model.Metric, dimension, metric, schema.ErrConfigConflict)
		}
		if model.Status.Ready {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("pinecone: waiting for index %q: %v: %w", x.IndexName, ctx.Err(), schema.ErrCancelled)
		case <-time.After(x.pollInterval):
		}
		if model, err = x.describeIndex(ctx); err != nil {
			return err
		}
	}
	x.mu.Lock()
	x.host = normalizeHost(model.Host, x.BaseURL)
	x.dimension = dimension
	x.mu.Unlock()
	return nil
}

// Upsert writes entries in batches, replacing entries with existing ids.
// It reports how many entries the service accepted; a mid-batch failure
// leaves the applied prefix in place.
func (x *Index) Upsert(ctx context.Context, entries []schema.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	host, dimension, err := x.endpoint(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for start := 0; start < len(entries); start += x.batchSize {
		end := start + x.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		records := make([]vectorRecord, 0, end-start)
		for _, entry := range entries[start:end] {
			if len(entry.Vector) != dimension {
				return applied, fmt.Errorf("pinecone: entry %q has dimension %d, index wants %d: %w",
					entry.ID, len(entry.Vector), dimension, schema.ErrInvalidArgument)
			}
			records = append(records, vectorRecord{ID: entry.ID, Values: entry.Vector, Metadata: vectorMetadata{Text: entry.Text}})
		}
		count, err := x.upsertVectors(ctx, host, records)
		if err != nil {
			return applied, sanitize(err)
		}
		applied += count
	}
	return applied, nil
}

// Query returns up to topK nearest entries by the index metric, re-sorted
// locally so the descending-score, ascending-id order holds regardless of
// service behavior.
func (x *Index) Query(ctx context.Context, vector []float32, topK int) ([]schema.Match, error) {
	if topK < 1 {
		return nil, fmt.Errorf("pinecone: topK %d: %w", topK, schema.ErrInvalidArgument)
	}
	host, dimension, err := x.endpoint(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != dimension {
		return nil, fmt.Errorf("pinecone: query vector has dimension %d, index wants %d: %w",
			len(vector), dimension, schema.ErrInvalidArgument)
	}
	resp, err := x.queryVectors(ctx, host, queryRequest{Vector: vector, TopK: topK, IncludeMetadata: true})
	if err != nil {
		return nil, sanitize(err)
	}
	matches := make([]schema.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, schema.Match{ID: m.ID, Text: m.Metadata.Text, Score: m.Score})
	}
	vectordb.SortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// endpoint returns the data-plane host, resolving it through describe when
// EnsureReady has not run in this process yet.
func (x *Index) endpoint(ctx context.Context) (string, int, error) {
	x.mu.Lock()
	host, dimension := x.host, x.dimension
	x.mu.Unlock()
	if host != "" {
		return host, dimension, nil
	}
	model, err := x.describeIndex(ctx)
	if err != nil {
		return "", 0, sanitize(err)
	}
	host = normalizeHost(model.Host, x.BaseURL)
	x.mu.Lock()
	x.host = host
	x.dimension = model.Dimension
	x.mu.Unlock()
	return host, model.Dimension, nil
}

// sanitize keeps the package-internal 404 marker from escaping the API.
func sanitize(err error) error {
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("%v: %w", err, schema.ErrInvalidResponse)
	}
	return err
}

func normalizeHost(host, fallback string) string {
	if host == "" {
		return fallback
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/")
}
