// Package sync provides keyed locking primitives for in-process stores.
package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// ShardedRWMutex spreads keys over a fixed set of RW mutexes so that
// unrelated keys rarely contend while one key always maps to one lock.
type ShardedRWMutex struct {
	shards [shardCount]sync.RWMutex
}

// NewShardedRWMutex creates a ShardedRWMutex with 32 shards.
func NewShardedRWMutex() *ShardedRWMutex {
	return &ShardedRWMutex{}
}

func (m *ShardedRWMutex) Lock(key string)    { m.shards[shardFor(key)].Lock() }
func (m *ShardedRWMutex) Unlock(key string)  { m.shards[shardFor(key)].Unlock() }
func (m *ShardedRWMutex) RLock(key string)   { m.shards[shardFor(key)].RLock() }
func (m *ShardedRWMutex) RUnlock(key string) { m.shards[shardFor(key)].RUnlock() }

// WithLock runs fn while holding the write lock for key.
func (m *ShardedRWMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

// shardFor maps a key to its shard. Empty keys land on shard 0.
func shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
