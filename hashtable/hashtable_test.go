package hashtable

import "testing"

func TestSetFindDelete(t *testing.T) {
	tbl := New[string, int](StringKeyOps{})
	tbl.Set("a", 1)
	tbl.Set("b", 2)

	if v, ok := tbl.Find("a"); !ok || v != 1 {
		t.Fatalf("Find(a) = %v, %v; want 1, true", v, ok)
	}
	if !tbl.Delete("a") {
		t.Fatal("Delete(a) reported failure")
	}
	if _, ok := tbl.Find("a"); ok {
		t.Fatal("Find(a) succeeded after delete")
	}
	if v, ok := tbl.Find("b"); !ok || v != 2 {
		t.Errorf("Find(b) = %v, %v; want 2, true", v, ok)
	}
}

func TestCreateOrFind(t *testing.T) {
	tbl := New[string, int](StringKeyOps{})
	v, created := tbl.CreateOrFind("x", 0)
	if !created || v != 0 {
		t.Fatalf("first CreateOrFind = %v, %v; want 0, true", v, created)
	}
	tbl.Set("x", 99)
	v, created = tbl.CreateOrFind("x", 0)
	if created || v != 99 {
		t.Fatalf("second CreateOrFind = %v, %v; want 99, false", v, created)
	}
}

// TestRebuildPreservesReachability checks that after a rehash every entry
// is still reachable at the new bucket index derived from its stored hash.
func TestRebuildPreservesReachability(t *testing.T) {
	tbl := New[string, int](StringKeyOps{})
	const n = 500
	for i := 0; i < n; i++ {
		tbl.Set(keyFor(i), i)
	}
	if tbl.Len() != n {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), n)
	}
	for i := 0; i < n; i++ {
		v, ok := tbl.Find(keyFor(i))
		if !ok || v != i {
			t.Fatalf("Find(%q) = %v, %v; want %d, true", keyFor(i), v, ok, i)
		}
	}
}

func keyFor(i int) string {
	buf := make([]byte, 0, 8)
	for n := i + 1000000; n > 0; n /= 10 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
	}
	return string(buf)
}

func TestWordKeyOps(t *testing.T) {
	tbl := New[uint64, string](WordKeyOps{})
	tbl.Set(42, "answer")
	tbl.Set(7, "lucky")
	if v, ok := tbl.Find(42); !ok || v != "answer" {
		t.Errorf("Find(42) = %v, %v", v, ok)
	}
	if v, ok := tbl.Find(7); !ok || v != "lucky" {
		t.Errorf("Find(7) = %v, %v", v, ok)
	}
}

func TestEachVisitsAll(t *testing.T) {
	tbl := New[string, int](StringKeyOps{})
	tbl.Set("a", 1)
	tbl.Set("b", 2)
	tbl.Set("c", 3)
	seen := map[string]int{}
	tbl.Each(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 3 || seen["a"] != 1 || seen["b"] != 2 || seen["c"] != 3 {
		t.Errorf("Each visited %v, want {a:1 b:2 c:3}", seen)
	}
}
