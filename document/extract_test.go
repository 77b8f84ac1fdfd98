package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecta-io/recall/schema"
)

func TestExtractUnsupportedMediaType(t *testing.T) {
	e := NewPDFExtractor()
	_, err := e.Extract(New([]byte("hello"), "text/plain"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrInvalidArgument))
}

func TestExtractEmptyDocument(t *testing.T) {
	e := NewPDFExtractor()
	text, err := e.Extract(New(nil, MediaTypePDF))
	require.NoError(t, err)
	assert.Empty(t, text)
}

// A payload the PDF parser rejects still yields its printable text through
// the fallback scan.
func TestExtractPrintableFallback(t *testing.T) {
	payload := append([]byte{0x00, 0x01}, []byte("alpha beta\ngamma")...)
	payload = append(payload, 0x02)
	e := NewPDFExtractor()
	text, err := e.Extract(New(payload, MediaTypePDF))
	require.NoError(t, err)
	assert.Equal(t, "alpha beta\ngamma", text)
}

func TestExtractPrintableTextUnicode(t *testing.T) {
	in := []byte("héllo\x00wörld\t!")
	out := extractPrintableText(in)
	assert.Equal(t, "héllowörld\t!", string(out))
}
