// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package segstore

import (
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// StreamStore is a Store backed by a non-seekable source (a pipe).
// Bytes arrive incrementally and are appended into process-local
// anonymous memory mappings; every full segment is retained for the
// life of the store, since there is no underlying file to re-read it
// from later. Only the ingest driver calls AppendFrom; all other
// methods are safe for concurrent readers.
type StreamStore struct {
	segmentSize uint64

	mu       sync.Mutex // serializes the single writer's appends
	segs     atomic.Pointer[[]*segment]
	tailUsed uint64 // bytes used within the current tail segment

	totalLen atomic.Uint64
	closed   bool
}

// NewStreamStore creates an empty stream-backed store.
func NewStreamStore(segmentSize uint64) *StreamStore {
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	ss := &StreamStore{segmentSize: segmentSize}
	empty := []*segment{}
	ss.segs.Store(&empty)
	return ss
}

// Len implements Store.
func (ss *StreamStore) Len() uint64 { return ss.totalLen.Load() }

// SegmentSize implements Store.
func (ss *StreamStore) SegmentSize() uint64 { return ss.segmentSize }

// AppendFrom reads up to n bytes from src, appending them into the
// store. It allocates a new anonymous-mapped segment whenever the
// current tail fills, and returns as soon as src delivers fewer bytes
// than were asked of it. It returns the number of bytes appended and
// any error from src (io.EOF included).
func (ss *StreamStore) AppendFrom(src io.Reader, n int) (written int, err error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for written < n {
		tail, err := ss.ensureTail()
		if err != nil {
			return written, err
		}

		room := int(ss.segmentSize - ss.tailUsed)
		want := n - written
		if want > room {
			want = room
		}

		r, rerr := src.Read(tail.data[ss.tailUsed : ss.tailUsed+uint64(want)])
		written += r
		ss.tailUsed += uint64(r)
		ss.totalLen.Add(uint64(r))

		if rerr != nil {
			return written, rerr
		}
		if r < want {
			return written, nil
		}
	}

	return written, nil
}

// ensureTail returns the current tail segment, allocating a fresh
// anonymous mapping if the store is empty or the tail is full.
func (ss *StreamStore) ensureTail() (*segment, error) {
	segs := *ss.segs.Load()

	if len(segs) == 0 || ss.tailUsed >= ss.segmentSize {
		data, err := mmapAnon(int(ss.segmentSize))
		if err != nil {
			return nil, err
		}
		seg := &segment{id: uint64(len(segs)), data: data}
		grown := append(append([]*segment{}, segs...), seg)
		ss.segs.Store(&grown)
		ss.tailUsed = 0
		return seg, nil
	}

	return segs[len(segs)-1], nil
}

// Read implements Store.
func (ss *StreamStore) Read(r Range) (*PinnedView, error) {
	if r.End < r.Start {
		return nil, ErrOutOfRange
	}
	if r.End > ss.Len() {
		return nil, ErrOutOfRange
	}
	if r.Start == r.End {
		return &PinnedView{data: nil}, nil
	}

	ss2 := ss.segmentSize
	startSeg := segmentID(r.Start, ss2)
	endSeg := segmentID(r.End-1, ss2)
	segs := *ss.segs.Load()

	if startSeg == endSeg {
		base := startSeg * ss2
		seg := segs[startSeg]
		return &PinnedView{data: seg.slice(r.Start-base, r.End-base)}, nil
	}

	buf := make([]byte, 0, r.End-r.Start)
	for id := startSeg; id <= endSeg; id++ {
		seg := segs[id]
		base := id * ss2
		lo, hi := uint64(0), uint64(len(seg.data))
		if id == startSeg {
			lo = r.Start - base
		}
		if id == endSeg {
			hi = r.End - base
		}
		buf = append(buf, seg.slice(lo, hi)...)
	}

	return &PinnedView{data: buf, spanning: true}, nil
}

// Close unmaps every retained segment. Stream-backed segments are
// always resident, so pinned views are simply byte slices into memory
// that remains valid until Close runs; callers must Release all views
// before calling Close.
func (ss *StreamStore) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return nil
	}
	ss.closed = true

	var firstErr error
	for _, seg := range *ss.segs.Load() {
		if err := unix.Munmap(seg.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}
