package keymutex

import (
	"hash/fnv"
	"sync"
)

// KeyMutex serializes work per string key by hashing keys onto a fixed set
// of mutex shards. Distinct keys may share a shard; the same key always maps
// to the same shard, so per-key ordering holds.
type KeyMutex struct {
	shards []sync.Mutex
}

func New(shards int) *KeyMutex {
	if shards <= 0 {
		shards = 256
	}
	return &KeyMutex{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the shard for key and returns its unlock function.
func (k *KeyMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	shard := &k.shards[h.Sum32()%uint32(len(k.shards))]
	shard.Lock()
	return shard.Unlock
}
