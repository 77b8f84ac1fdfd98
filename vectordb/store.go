// Package vectordb defines the vector store capability: persisting
// (id, vector, payload) triples and answering nearest-neighbor queries.
// Two backends implement it, a managed cloud index and a local embedded
// store; both must rank identically given the same vectors.
package vectordb

import (
	"context"
	"math"
	"sort"

	"github.com/vecta-io/recall/schema"
)

// Metric names the similarity scoring function of a store.
type Metric string

// MetricCosine is the default and required similarity metric.
const MetricCosine Metric = "cosine"

// Store persists entries and answers nearest-neighbor queries.
//
// EnsureReady is idempotent: it creates the backing index or collection if
// absent, is a no-op when an identical one exists, and fails with
// schema.ErrConfigConflict when an existing one differs in dimension or
// metric. Upsert replaces entries by id and reports how many entries were
// applied; a mid-batch failure may leave a prefix applied. Query returns up
// to topK matches in strictly descending score order, ties broken by
// ascending id; an empty store yields an empty result, not an error.
type Store interface {
	EnsureReady(ctx context.Context, dimension int, metric Metric) error
	Upsert(ctx context.Context, entries []schema.Entry) (int, error)
	Query(ctx context.Context, vector []float32, topK int) ([]schema.Match, error)
}

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, zero when either has zero magnitude.
func CosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// SortMatches orders matches by descending score, ascending id on ties.
// Both backends apply it so ranking is deterministic regardless of how the
// underlying search returned its results.
func SortMatches(matches []schema.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}
