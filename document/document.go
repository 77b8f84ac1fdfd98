// Package document converts source documents into a single ordered text
// stream ready for splitting.
package document

import "fmt"

// Supported media types.
const (
	// MediaTypePDF is the only paginated text media type the engine accepts.
	MediaTypePDF = "application/pdf"
)

// Document is a transient source document: raw bytes plus a declared media
// type. It exists only for the duration of an ingestion call.
type Document struct {
	Data      []byte
	MediaType string
}

// New returns a Document over the supplied payload.
func New(data []byte, mediaType string) Document {
	return Document{Data: data, MediaType: mediaType}
}

func (d Document) String() string {
	return fmt.Sprintf("document(%s, %d bytes)", d.MediaType, len(d.Data))
}
