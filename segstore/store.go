// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package segstore implements the addressable byte store backing a bvr
// buffer: a logical sequence of bytes 0..Len() split into fixed-size
// segments, either produced on demand from a seekable file (with a
// bounded-capacity LRU eviction cache) or retained for the process
// lifetime from a non-seekable stream (each segment a process-local
// anonymous mapping).
package segstore

// DefaultSegmentSize is the target segment size in bytes (1 MiB, per the
// segmented buffer's data model).
const DefaultSegmentSize = 1 << 20

// Range is a half-open byte range [Start, End) in the store's logical
// address space.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes the range spans.
func (r Range) Len() uint64 { return r.End - r.Start }

// Store is the addressable byte store shared by file-backed and
// stream-backed buffers.
type Store interface {
	// Len returns the current total byte count. It is backed by an
	// atomic load and is safe to call from any goroutine without
	// blocking on ingestion.
	Len() uint64

	// SegmentSize returns the fixed segment size used by this store.
	SegmentSize() uint64

	// Read returns a pinned view over r. If r lies within a single
	// segment the view is zero-copy; if it spans a segment boundary
	// the bytes are copied into a scratch buffer. ErrOutOfRange is
	// returned if r.End > Len().
	Read(r Range) (*PinnedView, error)

	// Close releases the store's resources. Behavior with outstanding
	// pinned views is flavor-specific; see FileStore and StreamStore.
	Close() error
}

// segmentID returns the identity (offset / segmentSize) of the segment
// containing the given byte offset.
func segmentID(offset, segmentSize uint64) uint64 {
	return offset / segmentSize
}
