package value

import (
	"strings"
	"testing"
)

func TestArithSeriesIndexAndReverse(t *testing.T) {
	a := ArithSeries{Start: 10, Step: 5, Len: 4}
	want := []string{"10", "15", "20", "25"}
	for i, w := range want {
		got, ok := a.Index(i)
		if !ok || got != w {
			t.Errorf("Index(%d) = (%q, %v), want (%q, true)", i, got, ok, w)
		}
	}
	if _, ok := a.Index(4); ok {
		t.Error("Index(4) should be out of range")
	}

	r := a.Reverse()
	first, _ := r.Index(0)
	last, _ := r.Index(3)
	if first != "25" || last != "10" {
		t.Errorf("Reverse = [%s ... %s], want [25 ... 10]", first, last)
	}
}

func TestArithSeriesSlice(t *testing.T) {
	a := ArithSeries{Start: 0, Step: 2, Len: 10}
	s := a.Slice(3, 6)
	if s.Length() != 3 {
		t.Fatalf("slice length = %d, want 3", s.Length())
	}
	want := []string{"6", "8", "10"}
	for i, w := range want {
		if got, _ := s.Index(i); got != w {
			t.Errorf("slice[%d] = %q, want %q", i, got, w)
		}
	}
}

func TestRepeatedListModIndexing(t *testing.T) {
	r := RepeatedList{Inner: []string{"a", "b"}, Times: 3}
	if r.Length() != 6 {
		t.Fatalf("Length = %d, want 6", r.Length())
	}
	want := []string{"a", "b", "a", "b", "a", "b"}
	for i, w := range want {
		if got, _ := r.Index(i); got != w {
			t.Errorf("Index(%d) = %q, want %q", i, got, w)
		}
	}
}

func TestHexIndexList(t *testing.T) {
	h := HexIndexList{Len: 17}
	cases := map[int]string{0: "0", 9: "9", 10: "a", 16: "10"}
	for i, w := range cases {
		if got, _ := h.Index(i); got != w {
			t.Errorf("Index(%d) = %q, want %q", i, got, w)
		}
	}
}

// lyingList reports a Length larger than it can actually produce, modeling
// an inconsistent adapter. Length is authoritative and materialization
// clamps to what the adapter can actually yield, never indexing past the
// first failure.
type lyingList struct{ real, claimed int }

func (l lyingList) Length() int { return l.claimed }
func (l lyingList) Index(i int) (string, bool) {
	if i < 0 || i >= l.real {
		return "", false
	}
	return "e", true
}
func (l lyingList) Slice(from, to int) AbstractList { return l }
func (l lyingList) Reverse() AbstractList           { return l }
func (l lyingList) Elements() []string              { return clampElements(l) }

func TestMaterializeClampsInconsistentAdapter(t *testing.T) {
	got := Materialize(lyingList{real: 3, claimed: 10})
	if len(got) != 3 {
		t.Errorf("Materialize yielded %d elements, want the 3 the adapter can produce", len(got))
	}
}

func TestAbstractListValueSerialization(t *testing.T) {
	v := Incr(NewObj())
	v.SetInternalRep(AbstractListType, ArithSeries{Start: 1, Step: 1, Len: 3})
	if got := v.GetString(); got != "1 2 3" {
		t.Errorf("GetString = %q, want %q", got, "1 2 3")
	}
	if v.TypeName() != "abstractlist" {
		t.Errorf("TypeName = %q, want \"abstractlist\"", v.TypeName())
	}
}

func TestAbstractListMutationFallsBackToMaterialized(t *testing.T) {
	al := RepeatedList{Inner: []string{"x", "y"}, Times: 2}
	elems := Materialize(al)
	elems = append(elems, "z")
	if strings.Join(elems, " ") != "x y x y z" {
		t.Errorf("materialized append = %q, want %q", strings.Join(elems, " "), "x y x y z")
	}
	// The abstract description itself is untouched.
	if al.Length() != 4 {
		t.Errorf("abstract list length = %d, want 4", al.Length())
	}
}
