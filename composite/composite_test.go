// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package composite_test

import (
	"sort"
	"testing"

	"github.com/bvrterm/bvr/composite"
	"github.com/bvrterm/bvr/lineindex"
)

// fakeSet is a fixed, sorted LineSet used to pin composite behavior
// without depending on a live matcher's background worker.
type fakeSet struct {
	lines []uint64
}

func newFakeSet(lines ...uint64) *fakeSet {
	return &fakeSet{lines: lines}
}

func (f *fakeSet) Count() int { return len(f.lines) }

func (f *fakeSet) Nth(k int) (uint64, bool) {
	if k < 0 || k >= len(f.lines) {
		return 0, false
	}
	return f.lines[k], true
}

func (f *fakeSet) Rank(n uint64) int {
	return sort.Search(len(f.lines), func(i int) bool { return f.lines[i] >= n })
}

func buildIndex(t *testing.T, lineCount int) *lineindex.Index {
	t.Helper()
	idx := lineindex.New()
	var off uint64
	for i := 0; i < lineCount; i++ {
		idx.AppendLineStart(off)
		off += 2 // pretend every line is 2 bytes including its newline
	}
	idx.PublishTotalLen(off)
	return idx
}

func TestEmptyCompositeIsTransparent(t *testing.T) {
	idx := buildIndex(t, 5)
	c := composite.New(idx)

	if got := c.FilteredLen(); got != 5 {
		t.Fatalf("expected transparent length 5, got %d", got)
	}
	for k := 0; k < 5; k++ {
		line, ok := c.FilteredNth(k)
		if !ok || line != uint64(k) {
			t.Fatalf("FilteredNth(%d) = %d,%v want %d,true", k, line, ok, k)
		}
	}
	if _, ok := c.FilteredNth(5); ok {
		t.Fatal("expected out of range at k=5")
	}
}

func TestUnionOfTwoMatchers(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)
	c.SetMode(composite.Union)

	a := newFakeSet(1, 4)
	b := newFakeSet(4, 5)
	c.Add(a)
	c.Add(b)

	if got := c.FilteredLen(); got != 3 {
		t.Fatalf("expected union length 3, got %d", got)
	}

	want := []uint64{1, 4, 5}
	for k, w := range want {
		got, ok := c.FilteredNth(k)
		if !ok || got != w {
			t.Fatalf("FilteredNth(%d) = %d,%v want %d", k, got, ok, w)
		}
	}
}

func TestIntersectOfTwoMatchers(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)
	c.SetMode(composite.Intersect)

	a := newFakeSet(1, 4)
	b := newFakeSet(4, 5)
	c.Add(a)
	c.Add(b)

	if got := c.FilteredLen(); got != 1 {
		t.Fatalf("expected intersect length 1, got %d", got)
	}
	got, ok := c.FilteredNth(0)
	if !ok || got != 4 {
		t.Fatalf("FilteredNth(0) = %d,%v want 4", got, ok)
	}
}

// TestIntersectRealignsAcrossMultipleChildren exercises a case where the
// alignment loop must revise maxLine more than once before every child
// agrees, and must terminate rather than spin once they do.
func TestIntersectRealignsAcrossMultipleChildren(t *testing.T) {
	idx := buildIndex(t, 20)
	c := composite.New(idx)
	c.SetMode(composite.Intersect)

	// first entries 1,2,3 give maxLine 3; realigning raises it to 4
	// (first child) and then to 5 (second child) before all agree.
	c.Add(newFakeSet(1, 4, 5, 9))
	c.Add(newFakeSet(2, 5, 9))
	c.Add(newFakeSet(3, 5, 9, 12))

	if got := c.FilteredLen(); got != 2 {
		t.Fatalf("expected intersect length 2, got %d", got)
	}
	want := []uint64{5, 9}
	for k, w := range want {
		got, ok := c.FilteredNth(k)
		if !ok || got != w {
			t.Fatalf("FilteredNth(%d) = %d,%v want %d", k, got, ok, w)
		}
	}
}

func TestOptionalEmptyChildDoesNotBreakTransparency(t *testing.T) {
	idx := buildIndex(t, 5)
	c := composite.New(idx)

	empty := newFakeSet()
	c.AddOptional(empty)

	if got := c.FilteredLen(); got != 5 {
		t.Fatalf("expected transparent length 5 with only an empty optional child, got %d", got)
	}
}

func TestOptionalEmptyChildDoesNotEmptyIntersect(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)
	c.SetMode(composite.Intersect)

	c.AddOptional(newFakeSet())
	c.Add(newFakeSet(1, 4))
	c.Add(newFakeSet(4, 5))

	if got := c.FilteredLen(); got != 1 {
		t.Fatalf("expected intersect length 1 (empty optional child ignored), got %d", got)
	}
	got, ok := c.FilteredNth(0)
	if !ok || got != 4 {
		t.Fatalf("FilteredNth(0) = %d,%v want 4", got, ok)
	}
}

func TestOptionalChildParticipatesOnceNonEmpty(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)

	c.AddOptional(newFakeSet(2))
	c.Add(newFakeSet(1, 4))

	if got := c.FilteredLen(); got != 3 {
		t.Fatalf("expected union length 3 (optional child's line included), got %d", got)
	}
	want := []uint64{1, 2, 4}
	for k, w := range want {
		got, ok := c.FilteredNth(k)
		if !ok || got != w {
			t.Fatalf("FilteredNth(%d) = %d,%v want %d", k, got, ok, w)
		}
	}
}

func TestDisabledChildExcluded(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)

	a := newFakeSet(1, 4)
	b := newFakeSet(4, 5)
	c.Add(a)
	c.Add(b)
	c.SetEnabled(b, false)

	if got := c.FilteredLen(); got != 2 {
		t.Fatalf("expected only a's lines, got len %d", got)
	}
	got, _ := c.FilteredNth(0)
	if got != 1 {
		t.Fatalf("expected line 1, got %d", got)
	}
}

func TestNavigationNextPrevMatch(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)
	c.SetMode(composite.Union)

	c.Add(newFakeSet(1, 4))
	c.Add(newFakeSet(4, 5))

	next, ok := c.NextMatch(1)
	if !ok || next != 4 {
		t.Fatalf("NextMatch(1) = %d,%v want 4", next, ok)
	}

	prev, ok := c.PrevMatch(5)
	if !ok || prev != 4 {
		t.Fatalf("PrevMatch(5) = %d,%v want 4", prev, ok)
	}

	if _, ok := c.PrevMatch(1); ok {
		t.Fatal("expected no match before line 1")
	}
	if _, ok := c.NextMatch(5); ok {
		t.Fatal("expected no match after line 5")
	}
}

func TestRankRoundTrip(t *testing.T) {
	idx := buildIndex(t, 10)
	c := composite.New(idx)
	c.SetMode(composite.Union)
	c.Add(newFakeSet(1, 4))
	c.Add(newFakeSet(4, 5))

	for k := 0; k < c.FilteredLen(); k++ {
		line, _ := c.FilteredNth(k)
		if got := c.Rank(line); got != k {
			t.Fatalf("Rank(FilteredNth(%d)=%d) = %d, want %d", k, line, got, k)
		}
	}
}

func TestClearRevertsToTransparent(t *testing.T) {
	idx := buildIndex(t, 3)
	c := composite.New(idx)
	c.Add(newFakeSet(0))
	c.Clear()

	if got := c.FilteredLen(); got != 3 {
		t.Fatalf("expected transparent length 3 after Clear, got %d", got)
	}
}
