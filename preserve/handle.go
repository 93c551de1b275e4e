package preserve

import "github.com/alecthomas/atomic"

// Handle is a weak token: it carries a nullable current pointer and its
// own refcount, independent of the registry above. Once the underlying
// block is freed, dereferencing through the handle yields ok=false rather
// than touching freed memory.
type Handle struct {
	refCount atomic.Int32
	ptr      any
}

// NewHandle returns a Handle wrapping ptr, refcount 0.
func NewHandle(ptr any) *Handle {
	return &Handle{ptr: ptr}
}

// HandlePreserve increments h's refcount.
func HandlePreserve(h *Handle) { h.refCount.Add(1) }

// HandleRelease decrements h's refcount.
func HandleRelease(h *Handle) { h.refCount.Add(-1) }

// HandleFree nulls h's pointer. The Handle struct itself is reclaimed by
// the garbage collector once both the pointer is null and the refcount is
// zero; there is no manual backing-block free to perform.
func HandleFree(h *Handle) {
	h.ptr = nil
}

// Get dereferences h, returning ok=false if the block has been freed.
func Get(h *Handle) (any, bool) {
	if h.ptr == nil {
		return nil, false
	}
	return h.ptr, true
}

// Reclaimable reports whether h's backing value may be reclaimed: pointer
// is null and refcount is zero.
func Reclaimable(h *Handle) bool {
	return h.ptr == nil && h.refCount.Load() == 0
}
