package schema

import "fmt"

// Chunk is the atomic retrievable unit: a bounded, ordered span of source
// text. Its ID is derived from its 1-based position so re-splitting the
// same text with the same chunk size reproduces identical ids.
type Chunk struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"`
}

// ChunkID returns the deterministic identifier for the n-th chunk (1-based).
func ChunkID(n int) string {
	return fmt.Sprintf("chunk-%d", n)
}

// Entry is the persisted (id, vector, payload) triple inside a vector store.
// The vector length must equal the store's configured dimension.
type Entry struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
}

// Match is a single similarity-search result.
type Match struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}
