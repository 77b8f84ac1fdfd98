package sqlitevec

import (
	"fmt"

	"github.com/viant/bintly"

	"github.com/vecta-io/recall/schema"
)

// vectorValue is the bintly-coded form of an embedding stored in the
// entries table.
type vectorValue struct {
	values []float32
}

// EncodeBinary encodes the vector into a binary stream.
func (v *vectorValue) EncodeBinary(stream *bintly.Writer) error {
	stream.Float32s(v.values)
	return nil
}

// DecodeBinary decodes the vector from a binary stream.
func (v *vectorValue) DecodeBinary(stream *bintly.Reader) error {
	stream.Float32s(&v.values)
	return nil
}

func encodeVector(values []float32) ([]byte, error) {
	data, err := bintly.Marshal(&vectorValue{values: values})
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: encode vector: %w", err)
	}
	return data, nil
}

func decodeVector(data []byte) ([]float32, error) {
	var value vectorValue
	if err := bintly.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("sqlitevec: decode vector: %v: %w", err, schema.ErrInvalidResponse)
	}
	return value.values, nil
}
