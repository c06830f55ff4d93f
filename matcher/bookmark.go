// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package matcher

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Bookmarks is a distinguished matcher whose membership is user-toggled
// rather than predicate-driven. It otherwise participates in a
// composite matcher identically to a regular Matcher (same Count/Nth/Rank
// surface), but since membership can be removed as well as added, it is
// backed by a copy-on-write sorted slice rather than a pure append-only
// sequence.
type Bookmarks struct {
	mu    sync.Mutex
	lines atomic.Pointer[[]uint64]
}

// NewBookmarks returns an empty set of bookmarks.
func NewBookmarks() *Bookmarks {
	b := &Bookmarks{}
	empty := make([]uint64, 0)
	b.lines.Store(&empty)
	return b
}

// Toggle flips membership of line, returning the resulting state (true
// if now bookmarked).
func (b *Bookmarks) Toggle(line uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := *b.lines.Load()
	i := sort.Search(len(cur), func(i int) bool { return cur[i] >= line })

	if i < len(cur) && cur[i] == line {
		next := make([]uint64, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		b.lines.Store(&next)
		return false
	}

	next := make([]uint64, 0, len(cur)+1)
	next = append(next, cur[:i]...)
	next = append(next, line)
	next = append(next, cur[i:]...)
	b.lines.Store(&next)
	return true
}

// Clear removes every bookmark.
func (b *Bookmarks) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	empty := make([]uint64, 0)
	b.lines.Store(&empty)
}

// Count returns the number of bookmarked lines.
func (b *Bookmarks) Count() int { return len(*b.lines.Load()) }

// Nth returns the k-th smallest bookmarked line number.
func (b *Bookmarks) Nth(k int) (uint64, bool) {
	s := *b.lines.Load()
	if k < 0 || k >= len(s) {
		return 0, false
	}
	return s[k], true
}

// Rank returns the lower-bound position of line n among bookmarks.
func (b *Bookmarks) Rank(n uint64) int {
	s := *b.lines.Load()
	return sort.Search(len(s), func(i int) bool { return s[i] >= n })
}
