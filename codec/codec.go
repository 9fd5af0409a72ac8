package codec

import (
	"path"
	"strings"
)

// Codec turns stored bytes into a value of type T and back. name is the
// asset path and selects the format where a codec handles several.
type Codec[T any] interface {
	Decode(name string, data []byte) (T, error)
	Encode(name string, v T) ([]byte, error)
}

// Ext returns the lower-case extension of name without the dot.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// Bytes passes data through unchanged.
type Bytes struct{}

func (Bytes) Decode(_ string, data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (Bytes) Encode(_ string, v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}
