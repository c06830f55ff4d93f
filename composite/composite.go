// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package composite implements the union/intersection combination of
// several line matchers into one logical filtered line set, recomputed
// lazily per query and bounded by the queried range rather than
// materialized up front.
package composite

import (
	"container/heap"
	"sort"

	"github.com/bvrterm/bvr/lineindex"
)

// LineSet is the surface a composite needs from each child: a regex or
// literal matcher, or the bookmarks set.
type LineSet interface {
	Count() int
	Nth(k int) (uint64, bool)
	Rank(n uint64) int
}

// Mode selects how enabled children combine.
type Mode int

const (
	Union Mode = iota
	Intersect
)

type child struct {
	set      LineSet
	enabled  bool
	optional bool
}

// Composite is an ordered list of (LineSet, enabled) pairs and a
// composition mode. It holds no persistent computed state besides its
// child references and enabled bits; every query recomputes against the
// children's current published lengths.
type Composite struct {
	children []*child
	mode     Mode
	idx      *lineindex.Index
}

// New returns an empty composite over idx (used for the "no filters"
// transparent case, where every indexed line is considered a member).
func New(idx *lineindex.Index) *Composite {
	return &Composite{idx: idx, mode: Union}
}

// Add registers a child line set, enabled by default. A composite with
// at least one such child is never transparent, even while the child
// currently has zero members (e.g. a regex that hasn't matched yet).
func (c *Composite) Add(set LineSet) {
	c.children = append(c.children, &child{set: set, enabled: true})
}

// AddOptional registers a child line set that does not by itself break
// transparency while empty. This is for sets like bookmarks, which are
// always present on a session but shouldn't turn "no filters applied"
// into "show nothing" just because nothing has been bookmarked yet.
func (c *Composite) AddOptional(set LineSet) {
	c.children = append(c.children, &child{set: set, enabled: true, optional: true})
}

// SetEnabled toggles whether a previously added child participates.
func (c *Composite) SetEnabled(set LineSet, enabled bool) {
	for _, ch := range c.children {
		if ch.set == set {
			ch.enabled = enabled
			return
		}
	}
}

// Clear removes every child, reverting to the transparent "no filters"
// state.
func (c *Composite) Clear() {
	c.children = nil
}

// SetMode changes the composition mode.
func (c *Composite) SetMode(m Mode) { c.mode = m }

// Mode returns the current composition mode.
func (c *Composite) Mode() Mode { return c.mode }

// enabledChildren returns the children that currently participate in a
// filter computation: every enabled non-optional child, plus enabled
// optional children (e.g. bookmarks) only once they actually have
// members. An empty optional child stays out of both Union and
// Intersect entirely, rather than vacuously emptying an Intersect or
// vacuously doing nothing to a Union.
func (c *Composite) enabledChildren() []LineSet {
	var out []LineSet
	for _, ch := range c.children {
		if !ch.enabled {
			continue
		}
		if ch.optional && ch.set.Count() == 0 {
			continue
		}
		out = append(out, ch.set)
	}
	return out
}

// transparent reports whether this composite currently applies no real
// filter, in which case every indexed line is a member (spec.md §4.F).
func (c *Composite) transparent() bool {
	return len(c.enabledChildren()) == 0
}

// FilteredLen returns the number of lines that currently pass the
// composite filter.
func (c *Composite) FilteredLen() int {
	if c.transparent() {
		return c.idx.LineCount()
	}

	enabled := c.enabledChildren()
	switch c.mode {
	case Intersect:
		return len(c.materializeIntersect(enabled, -1))
	default:
		return unionLen(enabled)
	}
}

// FilteredNth returns the k-th smallest line number in the filtered set.
func (c *Composite) FilteredNth(k int) (uint64, bool) {
	if k < 0 {
		return 0, false
	}

	if c.transparent() {
		if k >= c.idx.LineCount() {
			return 0, false
		}
		return uint64(k), true
	}

	enabled := c.enabledChildren()
	switch c.mode {
	case Intersect:
		res := c.materializeIntersect(enabled, k+1)
		if k >= len(res) {
			return 0, false
		}
		return res[k], true
	default:
		return unionNth(enabled, k)
	}
}

// Rank returns the position of line n within the filtered sequence,
// i.e. the number of filtered lines strictly before n. It satisfies
// Rank(FilteredNth(k)) == k for k < FilteredLen().
func (c *Composite) Rank(n uint64) int {
	if c.transparent() {
		return int(n)
	}

	enabled := c.enabledChildren()
	if c.mode == Intersect {
		res := c.materializeIntersect(enabled, -1)
		return sort.Search(len(res), func(i int) bool { return res[i] >= n })
	}

	// Union: count how many of the first Rank-worth of each child's
	// entries are < n, then de-duplicate by merging - cheapest correct
	// approach is just to materialize up to n via the heap merge and
	// count.
	count := 0
	kwayUnion(enabled, func(line uint64) bool {
		if line >= n {
			return false
		}
		count++
		return true
	})
	return count
}

// NextMatch returns the smallest filtered line number strictly greater
// than after, if any.
func (c *Composite) NextMatch(after uint64) (uint64, bool) {
	k := c.Rank(after + 1)
	return c.FilteredNth(k)
}

// PrevMatch returns the largest filtered line number strictly less than
// before, if any.
func (c *Composite) PrevMatch(before uint64) (uint64, bool) {
	if before == 0 {
		return 0, false
	}
	k := c.Rank(before)
	if k == 0 {
		return 0, false
	}
	return c.FilteredNth(k - 1)
}

// --- union ---

type heapItem struct {
	line uint64
	set  LineSet
	pos  int
}

type minHeap []heapItem

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].line < h[j].line }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// kwayUnion performs a sorted, de-duplicated k-way merge across sets,
// invoking visit for each distinct line number in ascending order until
// visit returns false or the merge is exhausted.
func kwayUnion(sets []LineSet, visit func(line uint64) bool) {
	h := make(minHeap, 0, len(sets))
	for _, s := range sets {
		if v, ok := s.Nth(0); ok {
			h = append(h, heapItem{line: v, set: s, pos: 0})
		}
	}
	heap.Init(&h)

	var lastLine uint64
	first := true

	for h.Len() > 0 {
		item := heap.Pop(&h).(heapItem)

		if first || item.line != lastLine {
			if !visit(item.line) {
				return
			}
			lastLine = item.line
			first = false
		}

		if v, ok := item.set.Nth(item.pos + 1); ok {
			heap.Push(&h, heapItem{line: v, set: item.set, pos: item.pos + 1})
		}
	}
}

func unionLen(sets []LineSet) int {
	n := 0
	kwayUnion(sets, func(uint64) bool { n++; return true })
	return n
}

func unionNth(sets []LineSet, k int) (uint64, bool) {
	var result uint64
	found := false
	i := 0
	kwayUnion(sets, func(line uint64) bool {
		if i == k {
			result = line
			found = true
			return false
		}
		i++
		return true
	})
	return result, found
}

// --- intersect ---

// materializeIntersect advances one pointer per child by the current
// maximum, emitting a line only when every child points at it. limit
// bounds the number of emitted lines (-1 means unbounded).
func (c *Composite) materializeIntersect(sets []LineSet, limit int) []uint64 {
	if len(sets) == 0 {
		return nil
	}

	positions := make([]int, len(sets))
	var out []uint64

	for {
		var maxLine uint64
		for i, s := range sets {
			v, ok := s.Nth(positions[i])
			if !ok {
				return out // one child exhausted: intersection is done
			}
			if v > maxLine {
				maxLine = v
			}
		}

		// Advance every pointer that sits behind maxLine. If doing so
		// reveals a new, larger maximum, keep realigning until every
		// child points at the same line.
		for {
			aligned := true
			for i, s := range sets {
				for {
					v, ok := s.Nth(positions[i])
					if !ok {
						return out
					}
					if v < maxLine {
						positions[i]++
						continue
					}
					if v > maxLine {
						maxLine = v
						aligned = false
					}
					break
				}
			}
			if aligned {
				break
			}
		}

		out = append(out, maxLine)
		for i := range positions {
			positions[i]++
		}

		if limit >= 0 && len(out) >= limit {
			return out
		}
	}
}
