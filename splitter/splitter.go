// Package splitter turns a text stream into the fixed-size word windows
// used as retrieval units.
package splitter

import "github.com/vecta-io/recall/schema"

// Splitter splits a text stream into ordered chunks.
type Splitter interface {
	Split(text string) ([]schema.Chunk, error)
}
