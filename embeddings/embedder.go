// Package embeddings defines the embedding capability consumed by the
// ingestion and retrieval pipelines.
package embeddings

import "context"

// Embedder computes fixed-dimension vector embeddings for documents and
// queries. EmbedDocuments preserves input order regardless of any internal
// batching or concurrency. Implementations are stateless and safe for
// concurrent use.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
