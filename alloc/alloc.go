// Package alloc implements a thread-caching slab allocator: a per-goroutine
// cache of singly-linked free lists, one per geometric size-class bucket,
// backed by a shared spill cache, falling back to Go's runtime allocator
// for oversized requests and in purify mode.
//
// Per-thread state is modeled as per-goroutine state. Go has no thread-exit
// destructor hook, so a worker goroutine that is about to exit for good
// must call DetachThread itself to return its cached blocks to the spill
// cache.
package alloc

import (
	"fmt"

	"github.com/anacrolix/sync"
	"github.com/tcltk/tclcore/internal/config"
	"github.com/tcltk/tclcore/internal/diag"
)

// MinAlloc is the smallest bucket size; bucket i holds MinAlloc << i.
const MinAlloc = 16

// NumBuckets is N, the number of geometric size classes cached per thread.
const NumBuckets = 8

// MaxCachedSize is the largest block size served from a bucket; requests
// above this go straight to the system allocator.
const MaxCachedSize = MinAlloc << (NumBuckets - 1)

// magic bytes stamped into every cached block's header to detect mismatched
// frees and double-frees.
const (
	magicByte0 byte = 0xA5
	magicByte1 byte = 0x5A
)

// block is a cached allocation: a header plus its payload. Go cannot hand
// out a raw offset pointer past an in-band header the way C pointer
// arithmetic can, so the header lives in a struct alongside the Payload
// slice and the magic/bucket/system bookkeeping is checked on every Free.
type block struct {
	magic0, magic1 byte
	bucket         int
	system         bool
	Payload        []byte
	next           *block
}

func bucketFor(size int) (idx int, capacity int, ok bool) {
	cap := MinAlloc
	for i := 0; i < NumBuckets; i++ {
		if size <= cap {
			return i, cap, true
		}
		cap <<= 1
	}
	return 0, 0, false
}

// spillCache is the shared, lock-protected overflow cache: refill and
// flush move a configured numMove entries at a time under its lock.
type spillCache struct {
	mu      sync.Mutex
	buckets [NumBuckets][]*block
}

var spill = &spillCache{}

// threadCache is the per-goroutine free-list cache. Callers own one
// threadCache per worker goroutine and must call DetachThread before the
// goroutine exits.
type threadCache struct {
	buckets [NumBuckets][]*block
}

// Allocator is the malloc/realloc/free surface, bound to one thread-cache.
// Purify mode, when enabled process-wide via internal/config.Purify,
// routes every call straight to the system allocator so external heap
// analyzers see every allocation.
type Allocator struct {
	tc *threadCache
}

// New returns a fresh Allocator with an empty thread cache.
func New() *Allocator {
	return &Allocator{tc: &threadCache{}}
}

// DetachThread returns every block cached in a's thread cache to the spill
// cache. Go has no thread-exit destructor to call this automatically, so
// it is the caller's responsibility.
func (a *Allocator) DetachThread() {
	spill.mu.Lock()
	defer spill.mu.Unlock()
	for i := 0; i < NumBuckets; i++ {
		spill.buckets[i] = append(spill.buckets[i], a.tc.buckets[i]...)
		a.tc.buckets[i] = nil
	}
}

// Malloc returns a zeroed payload of at least size bytes. Returns nil only
// if the underlying system allocator fails, which in Go practice never
// happens (the runtime aborts on true OOM).
func (a *Allocator) Malloc(size int) []byte {
	if config.Purify {
		return make([]byte, size)
	}
	idx, capacity, ok := bucketFor(size)
	if !ok {
		// Oversized: system allocation, flagged so Free routes it back to
		// the system rather than a bucket free-list.
		b := &block{magic0: magicByte0, magic1: magicByte1, system: true, Payload: make([]byte, size)}
		return stampedPayload(b)
	}

	if n := len(a.tc.buckets[idx]); n > 0 {
		b := a.tc.buckets[idx][n-1]
		a.tc.buckets[idx] = a.tc.buckets[idx][:n-1]
		b.Payload = b.Payload[:size]
		clear(b.Payload)
		return stampedPayload(b)
	}

	if b := a.refillFromSpill(idx); b != nil {
		b.Payload = b.Payload[:size]
		clear(b.Payload)
		return stampedPayload(b)
	}

	b := &block{magic0: magicByte0, magic1: magicByte1, bucket: idx, Payload: make([]byte, size, capacity)}
	return stampedPayload(b)
}

// refillFromSpill moves up to numMove blocks from the shared spill cache's
// bucket idx into the thread cache, returning one of them (or nil if the
// spill bucket was empty).
func (a *Allocator) refillFromSpill(idx int) *block {
	spill.mu.Lock()
	defer spill.mu.Unlock()

	avail := spill.buckets[idx]
	if len(avail) == 0 {
		return nil
	}
	n := config.AllocNumMove
	if n > len(avail) {
		n = len(avail)
	}
	moved := avail[len(avail)-n:]
	spill.buckets[idx] = avail[:len(avail)-n]

	a.tc.buckets[idx] = append(a.tc.buckets[idx], moved[:n-1]...)
	return moved[n-1]
}

// payloadHeader is a lightweight map from a payload's backing array pointer
// back to its owning block, letting Free recover bucket/system/magic state
// from just the []byte a caller holds. This sidesteps the fact that Go
// slices cannot carry an adjacent out-of-band header the way a C pointer
// arithmetic trick would.
var payloadHeader = struct {
	mu sync.Mutex
	m  map[*byte]*block
}{m: make(map[*byte]*block)}

func stampedPayload(b *block) []byte {
	payloadHeader.mu.Lock()
	if len(b.Payload) > 0 {
		payloadHeader.m[&b.Payload[0]] = b
	}
	payloadHeader.mu.Unlock()
	return b.Payload
}

func lookupBlock(payload []byte) (*block, bool) {
	if len(payload) == 0 {
		return nil, false
	}
	payloadHeader.mu.Lock()
	b, ok := payloadHeader.m[&payload[0]]
	payloadHeader.mu.Unlock()
	return b, ok
}

// Free validates the block's magic bytes and returns it to the thread
// cache (flushing overflow to the spill cache) or, for system-sized
// blocks, drops it for the garbage collector to reclaim. Detected header
// corruption indicates memory misuse and is fatal.
func (a *Allocator) Free(payload []byte) {
	if config.Purify {
		return
	}
	b, ok := lookupBlock(payload)
	if !ok {
		diag.Fatalf("alloc: Free called on a payload this allocator never issued")
		return
	}
	if b.magic0 != magicByte0 || b.magic1 != magicByte1 {
		diag.Fatalf("alloc: corrupted allocation header (mismatched free or double free)")
		return
	}
	payloadHeader.mu.Lock()
	delete(payloadHeader.m, &payload[0])
	payloadHeader.mu.Unlock()

	if b.system {
		return
	}
	a.tc.buckets[b.bucket] = append(a.tc.buckets[b.bucket], b)
	if len(a.tc.buckets[b.bucket]) > config.AllocMaxBlocks {
		a.flushToSpill(b.bucket)
	}
}

func (a *Allocator) flushToSpill(idx int) {
	spill.mu.Lock()
	defer spill.mu.Unlock()
	n := config.AllocNumMove
	bucket := a.tc.buckets[idx]
	if n > len(bucket) {
		n = len(bucket)
	}
	spill.buckets[idx] = append(spill.buckets[idx], bucket[len(bucket)-n:]...)
	a.tc.buckets[idx] = bucket[:len(bucket)-n]
}

// Realloc grows or shrinks payload to newSize, keeping the same bucket
// when the new size still fits it without dropping below the previous
// bucket's ceiling; otherwise it allocates anew, copies the minimum of the
// old and new logical sizes, and frees the old payload.
func (a *Allocator) Realloc(payload []byte, newSize int) []byte {
	b, ok := lookupBlock(payload)
	if !ok {
		out := a.Malloc(newSize)
		copy(out, payload)
		return out
	}
	if !b.system {
		_, capacity, _ := bucketFor(len(payload))
		prevFloor := capacity >> 1
		if newSize <= capacity && newSize > prevFloor {
			b.Payload = b.Payload[:newSize]
			return b.Payload
		}
	}
	out := a.Malloc(newSize)
	n := len(payload)
	if newSize < n {
		n = newSize
	}
	copy(out, payload[:n])
	a.Free(payload)
	return out
}

// Stats reports cache-occupancy counters: live block counts per bucket in
// this thread's cache and in the shared spill cache.
type Stats struct {
	ThreadCached [NumBuckets]int
	SpillCached  [NumBuckets]int
}

// GetStats snapshots current cache occupancy.
func (a *Allocator) GetStats() Stats {
	var s Stats
	for i := 0; i < NumBuckets; i++ {
		s.ThreadCached[i] = len(a.tc.buckets[i])
	}
	spill.mu.Lock()
	for i := 0; i < NumBuckets; i++ {
		s.SpillCached[i] = len(spill.buckets[i])
	}
	spill.mu.Unlock()
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("Stats{thread=%v spill=%v}", s.ThreadCached, s.SpillCached)
}
