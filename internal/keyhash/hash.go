// Package keyhash provides hash functions of cache keys to shard the in-memory response cache.
package keyhash

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/goccy/go-reflect"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]func(any) int{}
)

// For returns the hash function for the key type K.
// The function is created once per type and shared.
func For[K comparable]() func(any) int {
	var zero K
	name := reflect.TypeOf(&zero).Elem().String()

	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return f
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if f, ok := registry[name]; ok {
		return f
	}
	f = create(zero)
	registry[name] = f
	return f
}

// Bucket returns the index of the bucket for the key among n buckets.
func Bucket(hash func(any) int, key any, n int) int {
	index := hash(key) % n
	if index < 0 {
		index = -index
	}
	return index
}

func create(t any) func(any) int {
	switch t.(type) {
	case string:
		return func(v any) int {
			return String(v.(string))
		}
	case int:
		return func(v any) int {
			return uint64Hash(uint64(v.(int)))
		}
	case int64:
		return func(v any) int {
			return uint64Hash(uint64(v.(int64)))
		}
	case uint64:
		return func(v any) int {
			return uint64Hash(v.(uint64))
		}
	default:
		return func(v any) int {
			return String(fmt.Sprintf("%#v", v))
		}
	}
}

// String returns the FNV-1a hash of the string.
func String(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64())
}

func uint64Hash(v uint64) int {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h := fnv.New64a()
	_, _ = h.Write(b[:])
	return int(h.Sum64())
}
