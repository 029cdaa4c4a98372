package graphkv

// KeyValuePair is a tuple, used in bulk store reads and writes.
type KeyValuePair[TK any, TV any] struct {
	// Key is the key part in the pair.
	Key TK
	// Value is the value part in the pair.
	Value TV
}

// Item is the pair type exchanged with stores: a storage key and its value.
type Item = KeyValuePair[string, any]
