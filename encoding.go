package graphkv

import (
	"github.com/bytedance/sonic"
)

// Marshaler interface specifies encoding to byte array and back to the object.
type Marshaler interface {
	// Encodes any object to byte array.
	Marshal(v any) ([]byte, error)
	// Decodes byte array back to its Object type.
	Unmarshal(data []byte, v any) error
}

// DefaultMarshaler is used by the stores that persist values as bytes (redis, cassandra, aws_s3, fs).
// You can replace it with your desired Marshaler implementation if needed.
var DefaultMarshaler = NewMarshaler()

type defaultMarshaler struct {
	api sonic.API
}

// NewMarshaler returns the default marshaler. It uses sonic configured to behave like encoding/json
// so stored documents read back the same through either.
func NewMarshaler() Marshaler {
	return &defaultMarshaler{api: sonic.ConfigStd}
}

// Marshal encodes any object to a byte array.
func (m defaultMarshaler) Marshal(v any) ([]byte, error) {
	return m.api.Marshal(v)
}

// Unmarshal decodes a byte array back to its Object type.
func (m defaultMarshaler) Unmarshal(data []byte, v any) error {
	return m.api.Unmarshal(data, v)
}

// UnmarshalValue decodes a stored document into a JSON-like value.
func UnmarshalValue(m Marshaler, data []byte) (any, error) {
	var v any
	if err := m.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
