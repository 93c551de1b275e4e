// Package preserve implements the Preserve/Release deferred-reclamation
// protocol: a process-wide registry lets a function hand a pointer to a
// caller that might free it during reentrancy, deferring the actual free
// until every preserver has released.
package preserve

import "github.com/anacrolix/sync"

// Key identifies a preserved block. Any comparable value naming a block's
// identity works; most callers use the block's pointer.
type Key any

type entry struct {
	count    int
	eventual func(Key)
}

var registry = struct {
	mu sync.Mutex
	m  map[Key]*entry

	preserves     int
	releases      int
	eventualFrees int
}{m: make(map[Key]*entry)}

// Preserve increments the registry entry for p, creating it at count 1 if
// absent.
func Preserve(p Key) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.preserves++
	e, ok := registry.m[p]
	if !ok {
		registry.m[p] = &entry{count: 1}
		return
	}
	e.count++
}

// Release decrements the registry entry for p. If the count reaches zero
// and an EventuallyFree callback was registered, it runs after the entry
// is removed from the registry, so a reentrant Preserve of the same p
// inside the callback starts a fresh entry rather than resurrecting the
// old one.
func Release(p Key) {
	registry.mu.Lock()
	registry.releases++
	e, ok := registry.m[p]
	if !ok {
		registry.mu.Unlock()
		return
	}
	e.count--
	if e.count > 0 {
		registry.mu.Unlock()
		return
	}
	delete(registry.m, p)
	fn := e.eventual
	if fn != nil {
		registry.eventualFrees++
	}
	registry.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// EventuallyFree registers fn to run against p once every preserver has
// released, or calls fn(p) immediately if no preserver currently holds p.
func EventuallyFree(p Key, fn func(Key)) {
	registry.mu.Lock()
	e, ok := registry.m[p]
	if !ok || e.count == 0 {
		delete(registry.m, p)
		registry.eventualFrees++
		registry.mu.Unlock()
		fn(p)
		return
	}
	e.eventual = fn
	registry.mu.Unlock()
}

// Stats holds the registry's instrumentation counters: cumulative
// preserve/release calls, deferred frees actually executed, and the number
// of currently live registry entries.
type Stats struct {
	Preserves     int
	Releases      int
	EventualFrees int
	Live          int
}

// GetStats snapshots the registry's counters.
func GetStats() Stats {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return Stats{
		Preserves:     registry.preserves,
		Releases:      registry.releases,
		EventualFrees: registry.eventualFrees,
		Live:          len(registry.m),
	}
}

// IsPreserved reports whether p currently has any live preserver, for
// tests and diagnostics.
func IsPreserved(p Key) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	e, ok := registry.m[p]
	return ok && e.count > 0
}
