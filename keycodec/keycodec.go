// Package keycodec maps concrete graph paths to flat storage keys and back.
package keycodec

import (
	"fmt"
	"strings"

	"github.com/sharedcode/graphkv"
)

// DefaultSeparator joins the keys of a path in the default codec.
const DefaultSeparator = "!"

// Codec projects a concrete path to a storage key. Implementations must round-trip:
// Decode(Encode(p)) equals p and Encode(Decode(k)) equals k.
type Codec interface {
	Encode(path graphkv.Path) string
	Decode(key string) graphkv.Path
}

// Default joins path keys with DefaultSeparator.
var Default Codec = New(DefaultSeparator)

type separatorCodec struct {
	separator string
}

// New returns a codec joining path keys with separator. Keys must not contain separator.
func New(separator string) Codec {
	if separator == "" {
		separator = DefaultSeparator
	}
	return separatorCodec{separator: separator}
}

func (c separatorCodec) Encode(path graphkv.Path) string {
	return strings.Join(path.Strings(), c.separator)
}

func (c separatorCodec) Decode(key string) graphkv.Path {
	parts := strings.Split(key, c.separator)
	p := make(graphkv.Path, len(parts))
	for i := range parts {
		p[i] = graphkv.Key(parts[i])
	}
	return p
}

// Funcs adapts a pair of encode/decode functions, e.g. caller supplied overrides, to a Codec.
type Funcs struct {
	EncodeFunc func(graphkv.Path) string
	DecodeFunc func(string) graphkv.Path
}

func (f Funcs) Encode(path graphkv.Path) string {
	return f.EncodeFunc(path)
}

func (f Funcs) Decode(key string) graphkv.Path {
	return f.DecodeFunc(key)
}

type prefixCodec struct {
	inner  Codec
	prefix string
}

// WithPrefix namespaces every key produced by inner with prefix.
func WithPrefix(inner Codec, prefix string) Codec {
	if prefix == "" {
		return inner
	}
	return prefixCodec{inner: inner, prefix: prefix}
}

func (c prefixCodec) Encode(path graphkv.Path) string {
	return c.prefix + c.inner.Encode(path)
}

func (c prefixCodec) Decode(key string) graphkv.Path {
	return c.inner.Decode(strings.TrimPrefix(key, c.prefix))
}

// Verify checks the codec round-trips each of the sample paths.
func Verify(c Codec, samples ...graphkv.Path) error {
	if c == nil {
		return fmt.Errorf("codec can't be nil")
	}
	if f, ok := c.(Funcs); ok && (f.EncodeFunc == nil || f.DecodeFunc == nil) {
		return fmt.Errorf("both encode and decode functions are required")
	}
	for _, p := range samples {
		k := c.Encode(p)
		if got := c.Decode(k); !got.Equal(p) {
			return fmt.Errorf("path %v encoded to %q decodes back to %v", p, k, got)
		}
		if k2 := c.Encode(c.Decode(k)); k2 != k {
			return fmt.Errorf("key %q re-encodes to %q", k, k2)
		}
	}
	return nil
}
