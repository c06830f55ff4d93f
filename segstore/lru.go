// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package segstore

import "container/list"

// segLRU is a bounded-capacity, least-recently-used eviction cache over
// resident file-backed segments. Pinned segments are excluded from the
// eviction set by flag rather than by reservation-counted release, so a
// pin never forces an eviction; if every resident segment is pinned
// simultaneously the cache temporarily exceeds capacity rather than
// stalling the reader (see spec.md §9, "eviction under pinning
// pressure" - we pick "grow unbounded" here, not "fail").
type segLRU struct {
	capacity int
	items    map[uint64]*list.Element
	order    *list.List // front = most recently used
}

func newSegLRU(capacity int) *segLRU {
	if capacity < 1 {
		capacity = 1
	}
	return &segLRU{
		capacity: capacity,
		items:    make(map[uint64]*list.Element),
		order:    list.New(),
	}
}

// get returns the resident segment for id, if any, and marks it MRU.
func (c *segLRU) get(id uint64) (*segment, bool) {
	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*segment), true
}

// put inserts a newly loaded segment as MRU, evicting LRU non-pinned
// entries until the cache is back at or under capacity. If every
// resident entry is pinned, put leaves the cache over capacity rather
// than blocking or failing.
func (c *segLRU) put(seg *segment) {
	el := c.order.PushFront(seg)
	c.items[seg.id] = el

	for c.order.Len() > c.capacity {
		victim := c.evictCandidate()
		if victim == nil {
			// every resident segment is pinned; exceed capacity
			break
		}
		c.remove(victim)
	}
}

// evictCandidate returns the least-recently-used unpinned segment, or
// nil if none is available.
func (c *segLRU) evictCandidate() *segment {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		seg := el.Value.(*segment)
		if !seg.isPinned() {
			return seg
		}
	}
	return nil
}

func (c *segLRU) remove(seg *segment) {
	el, ok := c.items[seg.id]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.items, seg.id)
}

// touch re-promotes a segment to MRU, used when a pinned segment is
// released back into eviction eligibility.
func (c *segLRU) touch(id uint64) {
	if el, ok := c.items[id]; ok {
		c.order.MoveToFront(el)
	}
}

func (c *segLRU) len() int {
	return c.order.Len()
}
