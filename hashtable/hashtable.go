// Package hashtable implements a chained hash table: a bucket array of
// singly-linked chains, dispatching hash/equal through a pluggable
// key-type descriptor, growing by quadrupling the bucket count when the
// load factor crosses a threshold. A rehash reuses each entry's stored
// hash rather than recomputing it.
package hashtable

import "github.com/cespare/xxhash/v2"

// KeyOps is the pluggable key-type descriptor. Entry allocation and
// freeing fold into Go's normal value semantics (entries carry the key
// directly), so only Hash and Equal remain as dispatch points.
type KeyOps[K any] interface {
	Hash(key K) uint64
	Equal(a, b K) bool
}

// StringKeyOps is the default byte-string key descriptor, hashing through
// xxhash.
type StringKeyOps struct{}

func (StringKeyOps) Hash(key string) uint64     { return xxhash.Sum64String(key) }
func (StringKeyOps) Equal(a, b string) bool     { return a == b }

// WordKeyOps is the one-word key descriptor: a cheap avalanche mix rather
// than a streaming hash, since running a single machine word through
// xxhash would be pure overhead.
type WordKeyOps struct{}

func (WordKeyOps) Hash(key uint64) uint64 {
	// splitmix64 finalizer.
	h := key
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}
func (WordKeyOps) Equal(a, b uint64) bool { return a == b }

type entry[K any, V any] struct {
	hash  uint64
	key   K
	value V
	next  *entry[K, V]
}

// defaultBuckets is the small initial bucket count; growth quadruples it.
const defaultBuckets = 8

// maxLoadFactor triggers a rebuild once crossed.
const maxLoadFactor = 0.75

// Table is the generic chained hash table.
type Table[K any, V any] struct {
	ops     KeyOps[K]
	buckets []*entry[K, V]
	count   int
}

// New returns an empty table dispatching hash/equal through ops.
func New[K any, V any](ops KeyOps[K]) *Table[K, V] {
	return &Table[K, V]{ops: ops, buckets: make([]*entry[K, V], defaultBuckets)}
}

// Len reports the number of entries.
func (t *Table[K, V]) Len() int { return t.count }

func (t *Table[K, V]) index(hash uint64) int {
	return int(hash % uint64(len(t.buckets)))
}

// Find returns the stored value for key, or ok=false on a miss.
func (t *Table[K, V]) Find(key K) (V, bool) {
	hash := t.ops.Hash(key)
	for e := t.buckets[t.index(hash)]; e != nil; e = e.next {
		if e.hash == hash && t.ops.Equal(e.key, key) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// CreateOrFind returns the existing entry's value (created=false), or
// inserts zeroValue and returns it (created=true).
func (t *Table[K, V]) CreateOrFind(key K, zeroValue V) (value V, created bool) {
	hash := t.ops.Hash(key)
	idx := t.index(hash)
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && t.ops.Equal(e.key, key) {
			return e.value, false
		}
	}
	e := &entry[K, V]{hash: hash, key: key, value: zeroValue, next: t.buckets[idx]}
	t.buckets[idx] = e
	t.count++
	if float64(t.count)/float64(len(t.buckets)) > maxLoadFactor {
		t.rebuild()
	}
	return zeroValue, true
}

// Set installs key→value, overwriting any existing entry for key.
func (t *Table[K, V]) Set(key K, value V) {
	hash := t.ops.Hash(key)
	idx := t.index(hash)
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && t.ops.Equal(e.key, key) {
			e.value = value
			return
		}
	}
	e := &entry[K, V]{hash: hash, key: key, value: value, next: t.buckets[idx]}
	t.buckets[idx] = e
	t.count++
	if float64(t.count)/float64(len(t.buckets)) > maxLoadFactor {
		t.rebuild()
	}
}

// Delete unlinks the entry for key, reporting whether one was found.
func (t *Table[K, V]) Delete(key K) bool {
	hash := t.ops.Hash(key)
	idx := t.index(hash)
	var prev *entry[K, V]
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && t.ops.Equal(e.key, key) {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.count--
			return true
		}
		prev = e
	}
	return false
}

// rebuild quadruples the bucket count and re-indexes every entry using its
// stored hash, without recomputing it.
func (t *Table[K, V]) rebuild() {
	old := t.buckets
	t.buckets = make([]*entry[K, V], len(old)*4)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			idx := t.index(e.hash)
			e.next = t.buckets[idx]
			t.buckets[idx] = e
			e = next
		}
	}
}

// Keys returns every key currently stored, in unspecified order.
func (t *Table[K, V]) Keys() []K {
	out := make([]K, 0, t.count)
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			out = append(out, e.key)
		}
	}
	return out
}

// Each calls f for every key/value pair, stopping early if f returns false.
func (t *Table[K, V]) Each(f func(key K, value V) bool) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			if !f(e.key, e.value) {
				return
			}
		}
	}
}
