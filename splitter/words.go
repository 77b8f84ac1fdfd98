package splitter

import (
	"fmt"
	"strings"

	"github.com/vecta-io/recall/schema"
)

// DefaultChunkSize is the word count per chunk when none is configured.
const DefaultChunkSize = 20

// WordSplitter groups consecutive whitespace-separated words into
// non-overlapping windows of Size words; the final window holds the
// remainder. Splitting is deterministic: the same (text, size) always
// yields the same chunk texts and ids.
type WordSplitter struct {
	Size int
}

// NewWordSplitter returns a word-window splitter for the given chunk size.
func NewWordSplitter(size int) *WordSplitter {
	return &WordSplitter{Size: size}
}

// Split implements Splitter.
func (s *WordSplitter) Split(text string) ([]schema.Chunk, error) {
	return Words(text, s.Size)
}

// Words splits text into chunks of exactly size words each, the last chunk
// holding between 1 and size words. Empty text yields no chunks. A size
// below 1 is a caller error.
func Words(text string, size int) ([]schema.Chunk, error) {
	if size < 1 {
		return nil, fmt.Errorf("splitter: chunk size %d: %w", size, schema.ErrInvalidArgument)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	chunks := make([]schema.Chunk, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		ordinal := len(chunks) + 1
		chunks = append(chunks, schema.Chunk{
			ID:      schema.ChunkID(ordinal),
			Text:    strings.Join(words[i:end], " "),
			Ordinal: ordinal,
		})
	}
	return chunks, nil
}
