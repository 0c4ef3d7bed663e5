package pipeline

import (
	"sync"
	"time"

	"github.com/karupanerura/loading-stream/internal/keyhash"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

type bucket[K comparable, V any] struct {
	m  map[K]*cacheEntry[V]
	mu sync.RWMutex
}

// memoryCache keeps responses by key, sharded over buckets by the hash of the key type.
type memoryCache[K comparable, V any] struct {
	buckets []*bucket[K, V]
	hashKey func(any) int
	ttl     time.Duration
	policy  ExpirationPolicy
	clock   Clock
}

func newMemoryCache[K comparable, V any](o *options) *memoryCache[K, V] {
	buckets := make([]*bucket[K, V], o.bucketsSize)
	for i := range buckets {
		buckets[i] = &bucket[K, V]{m: map[K]*cacheEntry[V]{}}
	}
	return &memoryCache[K, V]{
		buckets: buckets,
		hashKey: keyhash.For[K](),
		ttl:     o.ttl,
		policy:  o.policy,
		clock:   o.clock,
	}
}

// resolveBucket returns the bucket that corresponds to the given key.
func (c *memoryCache[K, V]) resolveBucket(key K) *bucket[K, V] {
	if len(c.buckets) == 1 {
		return c.buckets[0]
	}
	return c.buckets[keyhash.Bucket(c.hashKey, key, len(c.buckets))]
}

func (c *memoryCache[K, V]) get(key K) (v V, ok bool) {
	b := c.resolveBucket(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, found := b.m[key]
	if !found || c.policy.IsExpired(c.clock.Now(), e.expiresAt) {
		return
	}
	return e.value, true
}

func (c *memoryCache[K, V]) set(key K, v V) {
	b := c.resolveBucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.m[key] = &cacheEntry[V]{value: v, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *memoryCache[K, V]) remove(key K) {
	b := c.resolveBucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.m, key)
}

func (c *memoryCache[K, V]) removeAll() {
	for _, b := range c.buckets {
		b.mu.Lock()
		clear(b.m)
		b.mu.Unlock()
	}
}

// purgeExpired removes the expired entries and returns how many were removed.
func (c *memoryCache[K, V]) purgeExpired() int {
	var n int
	now := c.clock.Now()
	for _, b := range c.buckets {
		b.mu.Lock()
		for key, e := range b.m {
			if c.policy.IsExpired(now, e.expiresAt) {
				delete(b.m, key)
				n++
			}
		}
		b.mu.Unlock()
	}
	return n
}
