// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package lineindex implements the line-number to byte-offset map: an
// append-only sorted sequence of line-start offsets, built incrementally
// by the ingest driver and readable concurrently at near-zero cost.
package lineindex

import (
	"errors"
	"sync/atomic"

	"github.com/bvrterm/bvr/internal/pubseq"
)

// ErrNotIndexedYet is returned by OffsetOfLine when the requested line
// has not been published yet.
var ErrNotIndexedYet = errors.New("lineindex: line not indexed yet")

// Index is the append-only sorted sequence of line-start byte offsets.
// Entry i is the byte offset of the first byte of line i. A virtual
// sentinel, equal to the most recently published total buffer length,
// terminates the current view (spec.md §3); it is tracked separately
// from the committed line starts so that "more bytes have arrived but
// no newline has been found yet" never needs to rewrite a published
// entry - append-only sequences by construction cannot mutate history.
type Index struct {
	starts *pubseq.Seq[uint64]
	total  atomic.Uint64
}

// New returns an empty Index.
func New() *Index {
	return &Index{starts: pubseq.New[uint64](1024)}
}

// LineCount returns the number of fully indexed lines (entries with a
// known start and a known end, i.e. excluding any trailing partial
// line still accumulating bytes).
func (idx *Index) LineCount() int {
	return idx.starts.Len()
}

// AppendLineStart publishes a new line-start offset. off must be
// strictly greater than the offset of the previous line, and no greater
// than the most recently published total length (buffer-before-index
// ordering, spec.md §5).
func (idx *Index) AppendLineStart(off uint64) {
	idx.starts.Append(off)
}

// PublishTotalLen advances the index's view of the buffer's total
// length. It must be monotonically non-decreasing and is safe to call
// concurrently with reads (never with other writes: the ingest driver
// is this Index's single writer).
func (idx *Index) PublishTotalLen(total uint64) {
	for {
		old := idx.total.Load()
		if total <= old {
			return
		}
		if idx.total.CompareAndSwap(old, total) {
			return
		}
	}
}

// TotalLen returns the most recently published total buffer length.
func (idx *Index) TotalLen() uint64 {
	return idx.total.Load()
}

// LineOfOffset returns the largest line i such that offset(i) <= off. If
// the index is empty, or off is at or past the published total length
// (no indexed line covers it yet), it returns LineCount() (the tail).
func (idx *Index) LineOfOffset(off uint64) int {
	snap := idx.starts.Snapshot()
	n := len(snap)
	if n == 0 {
		return 0
	}
	if off >= idx.TotalLen() {
		return n
	}
	if snap[0] > off {
		return 0
	}

	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if snap[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// OffsetOfLine returns the byte offset of line i's first byte.
// ErrNotIndexedYet is returned if i >= LineCount().
func (idx *Index) OffsetOfLine(i int) (uint64, error) {
	v, ok := idx.starts.At(i)
	if !ok {
		return 0, ErrNotIndexedYet
	}
	return v, nil
}

// LineRange returns the half-open byte range [start, end) of line i.
// end is the start of line i+1 if that line is already indexed,
// otherwise the current published total length (the line is the
// current final line, possibly still growing).
func (idx *Index) LineRange(i int) (start, end uint64, err error) {
	start, err = idx.OffsetOfLine(i)
	if err != nil {
		return 0, 0, err
	}

	if next, ok := idx.starts.At(i + 1); ok {
		return start, next, nil
	}
	return start, idx.TotalLen(), nil
}
