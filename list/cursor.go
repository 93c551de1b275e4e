package list

// Cursor is the list index iterator: (list, index, span#, elem#). Next
// advances elem#, rolls to the next non-empty span when exhausted, and
// becomes terminal at list end.
type Cursor struct {
	l       *List
	index   int
	spanIdx int
	elemIdx int
}

// NewCursor returns a cursor positioned at the first live element of l.
func NewCursor(l *List) *Cursor {
	c := &Cursor{l: l, spanIdx: l.first}
	c.skipEmptySpans()
	return c
}

func (c *Cursor) skipEmptySpans() {
	for c.spanIdx < c.l.last && c.l.spans[c.spanIdx].Len() == 0 {
		c.spanIdx++
	}
}

// Done reports whether the cursor has reached list end.
func (c *Cursor) Done() bool { return c.spanIdx >= c.l.last }

// Value returns the element at the cursor's current position. Must not be
// called when Done() is true.
func (c *Cursor) Value() any {
	sp := c.l.spans[c.spanIdx]
	return sp.at(c.elemIdx)
}

// Next advances the cursor by one element, rolling into the next non-empty
// span when the current one is exhausted.
func (c *Cursor) Next() {
	if c.Done() {
		return
	}
	c.index++
	c.elemIdx++
	if c.elemIdx >= c.l.spans[c.spanIdx].Len() {
		c.elemIdx = 0
		c.spanIdx++
		c.skipEmptySpans()
	}
}
