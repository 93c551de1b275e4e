// Package list implements a two-level, copy-on-write list: a List holds an
// ordered run of Span references and a Span holds a bounded contiguous run
// of elements, so slicing shares storage instead of copying it. Elements
// are stored as `any` so this package stays independent of the value
// package (which imports list, not the other way around).
package list

import "github.com/alecthomas/atomic"

// Span owns a bounded contiguous range [first, last) of elements within a
// larger capacity, plus a refcount.
type Span struct {
	refCount atomic.Int32
	elems    []any
	first    int
	last     int
}

// NewSpan returns an empty span with room for capacity elements.
func NewSpan(capacity int) *Span {
	if capacity < 1 {
		capacity = 1
	}
	return &Span{elems: make([]any, capacity)}
}

func (s *Span) Len() int      { return s.last - s.first }
func (s *Span) Cap() int      { return len(s.elems) }
func (s *Span) IsShared() bool { return s.refCount.Load() > 1 }

func spanIncr(s *Span) *Span { s.refCount.Add(1); return s }
func spanDecr(s *Span)       { s.refCount.Add(-1) }

// at returns the element at logical index i within the span (0 <= i < Len()).
func (s *Span) at(i int) any { return s.elems[s.first+i] }

// duplicate returns a private copy of s with refcount 0, same capacity.
func (s *Span) duplicate() *Span {
	cp := &Span{elems: append([]any(nil), s.elems...), first: s.first, last: s.last}
	return cp
}

// List owns an ordered run of Span references [first, last) within a
// larger capacity, a refcount, and a cached total element count.
type List struct {
	refCount atomic.Int32
	spans    []*Span
	first    int
	last     int
	count    int
}

// New returns an empty list with refcount 0.
func New() *List { return &List{} }

// Incr adds a strong reference and returns l.
func Incr(l *List) *List { l.refCount.Add(1); return l }

// Decr drops a strong reference; at zero every referenced span is released.
func Decr(l *List) {
	if l.refCount.Add(-1) <= 0 {
		for i := l.first; i < l.last; i++ {
			spanDecr(l.spans[i])
		}
	}
}

// IsShared reports refcount > 1.
func IsShared(l *List) bool { return l.refCount.Load() > 1 }

// Length returns the number of live elements, the sum of (span.last -
// span.first) over l's referenced spans.
func Length(l *List) int { return l.count }

// GetElements flattens every referenced span into one slice.
func GetElements(l *List) []any {
	out := make([]any, 0, l.count)
	for i := l.first; i < l.last; i++ {
		sp := l.spans[i]
		out = append(out, sp.elems[sp.first:sp.last]...)
	}
	return out
}

// Index returns the element at logical position i.
func Index(l *List, i int) (any, bool) {
	if i < 0 || i >= l.count {
		return nil, false
	}
	for s := l.first; s < l.last; s++ {
		sp := l.spans[s]
		n := sp.Len()
		if i < n {
			return sp.at(i), true
		}
		i -= n
	}
	return nil, false
}

// maxSpanDirGrowth bounds the span-slot array's doubling growth before a
// single-step growth is attempted instead.
const maxSpanDirGrowth = 1 << 24

// ensureSpanRoom grows the capacity of l's span-slot array so a slot at
// index l.last can be added, doubling capacity (or, if doubling would
// exceed the cap, growing by one slot). The slice length is left as is, so
// when l.last == len(l.spans) callers append rather than index.
func ensureSpanRoom(l *List) error {
	if l.last < len(l.spans) {
		return nil
	}
	newCap := len(l.spans) * 2
	if newCap == 0 {
		newCap = 4
	}
	if newCap-len(l.spans) > maxSpanDirGrowth {
		newCap = len(l.spans) + 1
	}
	grown := make([]*Span, len(l.spans), newCap)
	copy(grown, l.spans)
	l.spans = grown
	return nil
}

// defaultSpanCapacity is the element capacity given to a freshly allocated
// span when appending runs out of room in the current one.
const defaultSpanCapacity = 16

// AppendElement appends x to l following the copy-on-write append
// protocol: locate the last non-empty span; if the list is shared or that
// span is shared or full, append a new span (growing the span directory if
// needed) or privately duplicate a merely-shared span; otherwise store in
// place. Returns the list to use going forward — it may be l itself
// (mutated) or a fresh private list.
func AppendElement(l *List, x any) *List {
	target := l
	if IsShared(l) {
		target = clone(l)
	}

	if target.last == target.first {
		// No spans yet.
		appendNewSpan(target, x)
		return target
	}

	lastIdx := target.last - 1
	sp := target.spans[lastIdx]

	if sp.IsShared() {
		cp := sp.duplicate()
		spanIncr(cp)
		spanDecr(sp)
		target.spans[lastIdx] = cp
		sp = cp
	}

	if sp.last < sp.Cap() {
		sp.elems[sp.last] = x
		sp.last++
		target.count++
		return target
	}

	appendNewSpan(target, x)
	return target
}

func appendNewSpan(l *List, x any) {
	ensureSpanRoom(l)
	sp := NewSpan(defaultSpanCapacity)
	sp.elems[0] = x
	sp.last = 1
	spanIncr(sp)
	if l.last >= len(l.spans) {
		l.spans = append(l.spans, sp)
	} else {
		l.spans[l.last] = sp
	}
	l.last++
	l.count++
}

// clone returns a private List sharing the same span references (with
// their refcounts bumped), refcount starting at 0, ready for in-place
// mutation of its own span-slot array without disturbing the original.
func clone(l *List) *List {
	cp := &List{
		spans: append([]*Span(nil), l.spans[l.first:l.last]...),
		first: 0,
		last:  l.last - l.first,
		count: l.count,
	}
	for _, sp := range cp.spans {
		spanIncr(sp)
	}
	return cp
}

// AppendList concatenates src onto l's span directory by reference: spans
// are shared, not copied.
func AppendList(l, src *List) *List {
	target := l
	if IsShared(l) {
		target = clone(l)
	}
	for i := src.first; i < src.last; i++ {
		ensureSpanRoom(target)
		sp := src.spans[i]
		spanIncr(sp)
		if target.last >= len(target.spans) {
			target.spans = append(target.spans, sp)
		} else {
			target.spans[target.last] = sp
		}
		target.last++
		target.count += sp.Len()
	}
	return target
}

// Range returns a new List referencing the [from, to) sub-run of l by
// sharing a prefix/suffix of span references and trimming the endpoint
// spans. Fully covered spans are shared as the same refcounted Span object,
// so a later in-place mutation through either list sees them as shared and
// duplicates first. A partially covered endpoint span is copied into a
// private span: a Span's window is intrinsic to the object, so a narrower
// view cannot alias the same backing array without escaping the refcount.
func Range(l *List, from, to int) *List {
	if from < 0 {
		from = 0
	}
	if to > l.count {
		to = l.count
	}
	if from >= to {
		return New()
	}
	out := &List{}
	pos := 0
	for i := l.first; i < l.last; i++ {
		sp := l.spans[i]
		n := sp.Len()
		spStart, spEnd := pos, pos+n
		pos = spEnd
		if spEnd <= from || spStart >= to {
			continue
		}
		lo := from - spStart
		if lo < 0 {
			lo = 0
		}
		hi := to - spStart
		if hi > n {
			hi = n
		}
		var ref *Span
		if lo == 0 && hi == n {
			ref = spanIncr(sp)
		} else {
			ref = NewSpan(hi - lo)
			copy(ref.elems, sp.elems[sp.first+lo:sp.first+hi])
			ref.last = hi - lo
			spanIncr(ref)
		}
		out.spans = append(out.spans, ref)
		out.last++
		out.count += ref.Len()
	}
	return out
}

// SetElement replaces the element at logical index i, copy-on-write on the
// owning span.
func SetElement(l *List, i int, x any) (*List, bool) {
	if i < 0 || i >= l.count {
		return l, false
	}
	target := l
	if IsShared(l) {
		target = clone(l)
	}
	idx := i
	for s := target.first; s < target.last; s++ {
		sp := target.spans[s]
		n := sp.Len()
		if idx >= n {
			idx -= n
			continue
		}
		if sp.IsShared() {
			cp := sp.duplicate()
			spanIncr(cp)
			spanDecr(sp)
			target.spans[s] = cp
			sp = cp
		}
		sp.elems[sp.first+idx] = x
		return target, true
	}
	return target, false
}

// Replace substitutes the [from, to) logical range with repl. This
// materializes into a fresh list rather than trying to preserve span
// sharing across a splice, since a splice invalidates the contiguity
// invariant of every span it straddles.
func Replace(l *List, from, to int, repl []any) *List {
	elems := GetElements(l)
	if from < 0 {
		from = 0
	}
	if to > len(elems) {
		to = len(elems)
	}
	if from > to {
		from = to
	}
	merged := make([]any, 0, len(elems)-(to-from)+len(repl))
	merged = append(merged, elems[:from]...)
	merged = append(merged, repl...)
	merged = append(merged, elems[to:]...)
	out := New()
	for _, e := range merged {
		out = AppendElement(out, e)
	}
	return out
}
