package document

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/vecta-io/recall/schema"
)

// Extractor turns a source document into one ordered text stream.
type Extractor interface {
	Extract(doc Document) (string, error)
}

// PDFExtractor extracts per-page plain text in page order. When the PDF
// parser cannot handle the payload it falls back to a printable-rune scan,
// so a retrievable stream is produced for lightly malformed inputs too.
type PDFExtractor struct{}

// NewPDFExtractor returns the default extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the concatenated page text of a paginated document.
// Media types other than MediaTypePDF are a caller error.
func (e *PDFExtractor) Extract(doc Document) (string, error) {
	if doc.MediaType != MediaTypePDF {
		return "", fmt.Errorf("extract: unsupported media type %q: %w", doc.MediaType, schema.ErrInvalidArgument)
	}
	if len(doc.Data) == 0 {
		return "", nil
	}
	return string(extractPDFText(doc.Data)), nil
}

func extractPDFText(data []byte) []byte {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return extractPrintableText(data)
	}
	var out strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		out.WriteString(text)
	}
	if out.Len() > 0 {
		return []byte(out.String())
	}
	return extractPrintableText(data)
}

func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			b := in[0]
			if isPrintableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r <= 0x10FFFF
}
