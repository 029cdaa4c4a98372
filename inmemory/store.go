// Package inmemory contains an in-process graphkv.Store, for tests and embedded use.
package inmemory

import (
	"context"

	"github.com/sharedcode/graphkv"
)

func init() {
	graphkv.RegisterStoreFactory(graphkv.InMemory, func(graphkv.Options) (graphkv.Store, error) {
		return NewStore(), nil
	})
}

// Store keeps key/value pairs in memory. Values are deep copied in and out, callers never
// share state with the store.
type Store struct {
	items *shardedMap
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{items: newShardedMap()}
}

// MultiGet returns the pairs of the keys found, in request order.
func (s *Store) MultiGet(ctx context.Context, keys []string) ([]graphkv.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := make([]graphkv.Item, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.items.load(k); ok {
			r = append(r, graphkv.Item{Key: k, Value: graphkv.CloneValue(v)})
		}
	}
	return r, nil
}

// MultiSet stores every item. It never fails partially.
func (s *Store) MultiSet(ctx context.Context, items []graphkv.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, item := range items {
		s.items.store(item.Key, graphkv.CloneValue(item.Value))
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		s.items.delete(k)
	}
	return nil
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	s.items.clear()
	return nil
}

// Len returns the number of keys stored.
func (s *Store) Len() int {
	return s.items.len()
}
