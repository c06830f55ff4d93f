// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package segstore

import "sync/atomic"

// segment is a fixed-size contiguous page of the logical byte store.
// Segments before the last are always full; only the last may be
// partial. pins tracks active PinnedViews and keeps the segment out of
// the eviction set while non-zero.
type segment struct {
	id   uint64
	data []byte
	pins int32
}

func (s *segment) pin() {
	atomic.AddInt32(&s.pins, 1)
}

func (s *segment) unpin() {
	atomic.AddInt32(&s.pins, -1)
}

func (s *segment) isPinned() bool {
	return atomic.LoadInt32(&s.pins) > 0
}

// slice returns the bytes of the range within this segment, relative to
// the segment's own base offset.
func (s *segment) slice(loOff, hiOff uint64) []byte {
	return s.data[loOff:hiOff]
}
