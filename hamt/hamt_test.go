package hamt

import (
	"fmt"
	"testing"
)

type stringOps struct{}

func (stringOps) Hash(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
func (stringOps) Equal(a, b string) bool { return a == b }

func TestInsertGetRoundTrip(t *testing.T) {
	m := Empty[string, int](stringOps{})
	m2 := m.Insert("a", 1)
	m3 := m2.Insert("b", 2)

	if _, ok := m.Get("a"); ok {
		t.Error("empty map must not contain \"a\"")
	}
	if v, ok := m3.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v; want 1, true", v, ok)
	}
	if v, ok := m3.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %v, %v; want 2, true", v, ok)
	}
}

// TestOldRootUnaffected: the previous root must remain a valid, immutable
// map after a newer root is derived from it.
func TestOldRootUnaffected(t *testing.T) {
	m := Empty[string, int](stringOps{})
	m1 := m.Insert("k", 1)
	m2 := m1.Insert("k", 2)

	if v, _ := m1.Get("k"); v != 1 {
		t.Errorf("m1.Get(k) = %v, want 1 (must not see m2's overwrite)", v)
	}
	if v, _ := m2.Get("k"); v != 2 {
		t.Errorf("m2.Get(k) = %v, want 2", v)
	}
}

func TestManyInsertsAllReachable(t *testing.T) {
	m := Empty[string, int](stringOps{})
	const n = 2000
	for i := 0; i < n; i++ {
		m = m.Insert(fmt.Sprintf("key-%d", i), i)
	}
	for i := 0; i < n; i++ {
		v, ok := m.Get(fmt.Sprintf("key-%d", i))
		if !ok || v != i {
			t.Fatalf("Get(key-%d) = %v, %v; want %d, true", i, v, ok, i)
		}
	}
}

func TestRemove(t *testing.T) {
	m := Empty[string, int](stringOps{})
	m = m.Insert("a", 1).Insert("b", 2).Insert("c", 3)

	after := m.Remove("b")
	if _, ok := after.Get("b"); ok {
		t.Error("Get(b) succeeded after Remove")
	}
	if v, ok := after.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) after removing b = %v, %v; want 1, true", v, ok)
	}
	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Errorf("original map lost \"b\" = %v, %v; want 2, true (old root must stay valid)", v, ok)
	}
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	m := Empty[string, int](stringOps{})
	m = m.Insert("a", 1)
	after := m.Remove("nonexistent")
	if v, ok := after.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v; want 1, true", v, ok)
	}
}

// TestRemoveMissingReturnsSameRoot: removing an absent key returns the
// identical map, not just an equal one.
func TestRemoveMissingReturnsSameRoot(t *testing.T) {
	m := Empty[string, int](stringOps{})
	m = m.Insert("a", 1).Insert("b", 2)
	if after := m.Remove("zzz"); after != m {
		t.Error("Remove of an absent key must return the identical map")
	}
}

func TestLen(t *testing.T) {
	m := Empty[string, int](stringOps{})
	if m.Len() != 0 {
		t.Fatalf("empty Len = %d, want 0", m.Len())
	}
	m = m.Insert("a", 1).Insert("b", 2).Insert("a", 3)
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2 (overwrite must not grow the map)", m.Len())
	}
	if after := m.Remove("a"); after.Len() != 1 {
		t.Errorf("Len after remove = %d, want 1", after.Len())
	}
}

// collidingOps hashes every key to the same value, forcing every entry onto
// one leaf collision chain.
type collidingOps struct{}

func (collidingOps) Hash(string) uint64    { return 0xDEADBEEF }
func (collidingOps) Equal(a, b string) bool { return a == b }

func TestFullHashCollisionsChain(t *testing.T) {
	m := Empty[string, int](collidingOps{})
	keys := []string{"one", "two", "three", "four"}
	for i, k := range keys {
		m = m.Insert(k, i)
	}
	if m.Len() != len(keys) {
		t.Fatalf("Len = %d, want %d", m.Len(), len(keys))
	}
	for i, k := range keys {
		if v, ok := m.Get(k); !ok || v != i {
			t.Errorf("Get(%q) = %v, %v; want %d, true", k, v, ok, i)
		}
	}
	after := m.Remove("two")
	if _, ok := after.Get("two"); ok {
		t.Error("removed key still present in the collision chain")
	}
	if v, ok := after.Get("three"); !ok || v != 2 {
		t.Errorf("sibling chain entry lost: Get(three) = %v, %v", v, ok)
	}
}

func TestCollisionChain(t *testing.T) {
	// Two distinct keys that happen to collide are handled via the same
	// stringOps hash function at whatever depth their bits first diverge;
	// this just exercises many keys sharing hash bit patterns over a small
	// alphabet to stress the collision-chain path indirectly.
	m := Empty[string, int](stringOps{})
	keys := []string{"aa", "ab", "ba", "bb", "aaa", "aab"}
	for i, k := range keys {
		m = m.Insert(k, i)
	}
	for i, k := range keys {
		v, ok := m.Get(k)
		if !ok || v != i {
			t.Errorf("Get(%q) = %v, %v; want %d, true", k, v, ok, i)
		}
	}
}
