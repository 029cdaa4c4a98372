package graphkv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Store is the flat key/value persistence the data source bridges to.
type Store interface {
	// MultiGet fetches the values of keys. Keys not found are left out of the result.
	MultiGet(ctx context.Context, keys []string) ([]Item, error)
	// MultiSet persists all items. A partial failure is reported as KeyFailures, one per failed key;
	// items not listed were persisted.
	MultiSet(ctx context.Context, items []Item) error
}

// CloseableStore is a Store that holds resources, e.g. a connection, to release when done.
type CloseableStore interface {
	Store
	io.Closer
}

// KeyFailure describes a single key a store could not read or write.
type KeyFailure struct {
	Key string
	Err error
}

func (kf KeyFailure) Error() string {
	return fmt.Sprintf("key %s: %v", kf.Key, kf.Err)
}

func (kf KeyFailure) Unwrap() error {
	return kf.Err
}

// Message returns the underlying failure message.
func (kf KeyFailure) Message() string {
	if kf.Err == nil {
		return ""
	}
	return kf.Err.Error()
}

// KeyFailures is the error a store returns when a subset of keys failed.
type KeyFailures []KeyFailure

func (kfs KeyFailures) Error() string {
	msgs := make([]string, len(kfs))
	for i := range kfs {
		msgs[i] = kfs[i].Error()
	}
	return fmt.Sprintf("%d key(s) failed: %s", len(kfs), strings.Join(msgs, "; "))
}

// Unwrap exposes each key's error to errors.Is and errors.As.
func (kfs KeyFailures) Unwrap() []error {
	r := make([]error, len(kfs))
	for i := range kfs {
		r[i] = kfs[i]
	}
	return r
}

// Keys returns the failed keys in order.
func (kfs KeyFailures) Keys() []string {
	r := make([]string, len(kfs))
	for i := range kfs {
		r[i] = kfs[i].Key
	}
	return r
}

// FailuresOf converts a MultiSet error into per-key failures. KeyFailures found in err's chain
// are returned as is; any other error is attributed to every item since the store gave no detail.
func FailuresOf(err error, items []Item) KeyFailures {
	if err == nil {
		return nil
	}
	var kfs KeyFailures
	if errors.As(err, &kfs) {
		return kfs
	}
	r := make(KeyFailures, len(items))
	for i := range items {
		r[i] = KeyFailure{Key: items[i].Key, Err: err}
	}
	return r
}
