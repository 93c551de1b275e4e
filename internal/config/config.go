// Package config samples the handful of environment variables the core
// respects, once, at process init, as package-level variables rather than
// a config struct threaded through every call.
package config

import (
	"github.com/xyproto/env/v2"
)

var (
	// Purify routes every allocator call straight to the system allocator,
	// for use under external heap analyzers. Sampled once at init.
	Purify bool

	// AllocNumMove is the number of blocks moved between a thread's
	// per-bucket free list and the shared spill cache on refill/flush.
	AllocNumMove int

	// AllocMaxBlocks is the per-thread, per-bucket free-list length above
	// which a flush to the spill cache is triggered.
	AllocMaxBlocks int
)

func init() {
	Purify = env.Bool("TCLCORE_PURIFY")
	AllocNumMove = env.Int("TCLCORE_ALLOC_NUMMOVE", 32)
	AllocMaxBlocks = env.Int("TCLCORE_ALLOC_MAXBLOCKS", 256)
}
