package preserve

import "testing"

func TestPreserveDefersEventuallyFree(t *testing.T) {
	key := "block-a"
	Preserve(key)
	freed := false
	EventuallyFree(key, func(Key) { freed = true })
	if freed {
		t.Fatal("EventuallyFree ran immediately despite a live preserver")
	}
	Release(key)
	if !freed {
		t.Fatal("EventuallyFree did not run after the last Release")
	}
}

func TestEventuallyFreeRunsImmediatelyWhenUnpreserved(t *testing.T) {
	key := "block-b"
	ran := false
	EventuallyFree(key, func(Key) { ran = true })
	if !ran {
		t.Fatal("EventuallyFree should run immediately for an unpreserved key")
	}
}

func TestReentrantPreserveInsideCallback(t *testing.T) {
	key := "block-c"
	Preserve(key)
	var reentered bool
	EventuallyFree(key, func(k Key) {
		Preserve(k)
		reentered = true
		Release(k)
	})
	Release(key)
	if !reentered {
		t.Fatal("callback did not run")
	}
	if IsPreserved(key) {
		t.Error("key should not be preserved after the reentrant preserve/release pair completes")
	}
}

func TestMultiplePreserversRequireMultipleReleases(t *testing.T) {
	key := "block-d"
	Preserve(key)
	Preserve(key)
	freed := false
	EventuallyFree(key, func(Key) { freed = true })
	Release(key)
	if freed {
		t.Fatal("should not free after only one of two releases")
	}
	Release(key)
	if !freed {
		t.Fatal("should free after the second release")
	}
}

func TestStatsCountPairs(t *testing.T) {
	before := GetStats()
	key := "block-stats"
	Preserve(key)
	Preserve(key)
	freed := false
	EventuallyFree(key, func(Key) { freed = true })
	Release(key)
	Release(key)
	after := GetStats()

	if !freed {
		t.Fatal("deferred free did not run")
	}
	if d := after.Preserves - before.Preserves; d != 2 {
		t.Errorf("preserve delta = %d, want 2", d)
	}
	if d := after.Releases - before.Releases; d != 2 {
		t.Errorf("release delta = %d, want 2", d)
	}
	if d := after.EventualFrees - before.EventualFrees; d != 1 {
		t.Errorf("eventual-free delta = %d, want 1", d)
	}
}

func TestHandleDereferenceAfterFree(t *testing.T) {
	h := NewHandle(42)
	if v, ok := Get(h); !ok || v != 42 {
		t.Fatalf("Get(h) = %v, %v; want 42, true", v, ok)
	}
	HandleFree(h)
	if _, ok := Get(h); ok {
		t.Error("Get(h) should fail after HandleFree")
	}
}

func TestHandleReclaimable(t *testing.T) {
	h := NewHandle(1)
	HandlePreserve(h)
	HandleFree(h)
	if Reclaimable(h) {
		t.Error("should not be reclaimable while refcount > 0")
	}
	HandleRelease(h)
	if !Reclaimable(h) {
		t.Error("should be reclaimable once pointer is null and refcount is 0")
	}
}
