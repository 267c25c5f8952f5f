// Package sync provides per-key locking for read-modify-write sequences on
// single records.
package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// KeyedMutex serialises work per key over a fixed set of shards. Unrelated
// keys can share a shard, so a holder must never take a second key.
// The zero value is ready to use.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

func (m *KeyedMutex) Lock(key string) {
	m.shard(key).Lock()
}

func (m *KeyedMutex) Unlock(key string) {
	m.shard(key).Unlock()
}

// WithLock runs fn while holding key.
func (m *KeyedMutex) WithLock(key string, fn func() error) error {
	mu := m.shard(key)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (m *KeyedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%shardCount]
}
