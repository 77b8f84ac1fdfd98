package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vecta-io/recall/schema"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "scaled", a: []float32{2, 0}, b: []float32{9, 0}, want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CosineSimilarity(tc.a, tc.b), 1e-6)
		})
	}
}

func TestSortMatches(t *testing.T) {
	matches := []schema.Match{
		{ID: "chunk-3", Score: 0.5},
		{ID: "chunk-2", Score: 0.9},
		{ID: "chunk-10", Score: 0.5},
		{ID: "chunk-1", Score: 0.7},
	}
	SortMatches(matches)
	assert.Equal(t, "chunk-2", matches[0].ID)
	assert.Equal(t, "chunk-1", matches[1].ID)
	// Equal scores fall back to ascending id (lexicographic).
	assert.Equal(t, "chunk-10", matches[2].ID)
	assert.Equal(t, "chunk-3", matches[3].ID)
}
