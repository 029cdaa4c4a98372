package inmemory

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

type shard struct {
	mu    sync.RWMutex
	items map[string]any
}

// shardedMap spreads keys over independently locked shards so concurrent bulk
// operations on different keys rarely contend.
type shardedMap struct {
	shards [shardCount]*shard
}

func newShardedMap() *shardedMap {
	m := &shardedMap{}
	for i := 0; i < shardCount; i++ {
		m.shards[i] = &shard{items: make(map[string]any)}
	}
	return m
}

func (m *shardedMap) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

func (m *shardedMap) load(key string) (any, bool) {
	shard := m.getShard(key)
	shard.mu.RLock()
	val, ok := shard.items[key]
	shard.mu.RUnlock()
	return val, ok
}

func (m *shardedMap) store(key string, value any) {
	shard := m.getShard(key)
	shard.mu.Lock()
	shard.items[key] = value
	shard.mu.Unlock()
}

func (m *shardedMap) delete(key string) {
	shard := m.getShard(key)
	shard.mu.Lock()
	delete(shard.items, key)
	shard.mu.Unlock()
}

func (m *shardedMap) clear() {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.items = make(map[string]any)
		shard.mu.Unlock()
	}
}

func (m *shardedMap) len() int {
	n := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		n += len(shard.items)
		shard.mu.RUnlock()
	}
	return n
}
