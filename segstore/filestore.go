// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package segstore

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// FileStore is a Store backed by a seekable file. Segments are produced
// on demand by positioned reads and held in a bounded-capacity LRU
// cache; segments not currently cached are evictable, meaning simply
// "not currently resident" - they are re-read from the file when needed
// again, which is always possible because the file is the source of
// truth, never the cache.
type FileStore struct {
	file        *os.File
	segmentSize uint64
	capacity    int

	totalLen atomic.Uint64

	mu     sync.Mutex
	lru    *segLRU
	closed bool
}

// OpenFileStore opens f as a file-backed Store. capacity bounds the
// number of resident segments (default applied if <= 0). The initial
// length is taken from f's current size; GrowTo must be called by the
// ingest driver as more of the file is discovered (a log file may still
// be growing under a concurrent writer).
func OpenFileStore(f *os.File, segmentSize uint64, capacity int) (*FileStore, error) {
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	if capacity <= 0 {
		capacity = 8
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	fs := &FileStore{
		file:        f,
		segmentSize: segmentSize,
		capacity:    capacity,
		lru:         newSegLRU(capacity),
	}
	fs.totalLen.Store(uint64(fi.Size()))
	return fs, nil
}

// Len implements Store.
func (fs *FileStore) Len() uint64 { return fs.totalLen.Load() }

// SegmentSize implements Store.
func (fs *FileStore) SegmentSize() uint64 { return fs.segmentSize }

// GrowTo advances the store's observed length monotonically, never
// shrinking it. The ingest driver calls this in follow mode whenever a
// re-stat shows the underlying file has grown.
func (fs *FileStore) GrowTo(n uint64) {
	for {
		old := fs.totalLen.Load()
		if n <= old {
			return
		}
		if fs.totalLen.CompareAndSwap(old, n) {
			return
		}
	}
}

// ExtendFor ensures the segment covering offset is resident, without
// returning its bytes - used by prefetch/warm-up paths.
func (fs *FileStore) ExtendFor(offset uint64) error {
	_, err := fs.loadSegment(segmentID(offset, fs.segmentSize))
	return err
}

// Read implements Store.
func (fs *FileStore) Read(r Range) (*PinnedView, error) {
	if r.End < r.Start {
		return nil, ErrOutOfRange
	}
	if r.End > fs.Len() {
		return nil, ErrOutOfRange
	}
	if r.Start == r.End {
		return &PinnedView{data: nil}, nil
	}

	ss := fs.segmentSize
	startSeg := segmentID(r.Start, ss)
	endSeg := segmentID(r.End-1, ss)

	if startSeg == endSeg {
		seg, err := fs.loadSegment(startSeg)
		if err != nil {
			return nil, err
		}
		base := startSeg * ss
		seg.pin()
		var unpinned bool
		unpin := func() {
			if unpinned {
				return
			}
			unpinned = true
			seg.unpin()
			fs.mu.Lock()
			fs.lru.touch(seg.id)
			fs.mu.Unlock()
		}
		return &PinnedView{
			data:  seg.slice(r.Start-base, r.End-base),
			unpin: unpin,
		}, nil
	}

	// spanning: copy into a freshly allocated buffer, no lasting pin.
	buf := make([]byte, 0, r.End-r.Start)
	for id := startSeg; id <= endSeg; id++ {
		seg, err := fs.loadSegment(id)
		if err != nil {
			return nil, err
		}
		base := id * ss
		lo, hi := uint64(0), uint64(len(seg.data))
		if id == startSeg {
			lo = r.Start - base
		}
		if id == endSeg {
			hi = r.End - base
		}
		seg.pin()
		buf = append(buf, seg.slice(lo, hi)...)
		seg.unpin()
	}

	return &PinnedView{data: buf, spanning: true}, nil
}

// loadSegment returns the resident segment for id, reading it from the
// file if it is not already cached or if more of it is now available
// than was true the last time it was read (the last segment can grow
// while the file is still being ingested).
func (fs *FileStore) loadSegment(id uint64) (*segment, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil, ErrClosed
	}

	expected := fs.expectedSegmentLen(id)

	if seg, ok := fs.lru.get(id); ok {
		if uint64(len(seg.data)) >= expected {
			return seg, nil
		}
		fs.lru.remove(seg)
	}

	buf := make([]byte, expected)
	base := int64(id * fs.segmentSize)
	_, err := io.ReadFull(io.NewSectionReader(fs.file, base, int64(expected)), buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	seg := &segment{id: id, data: buf}
	fs.lru.put(seg)
	return seg, nil
}

func (fs *FileStore) expectedSegmentLen(id uint64) uint64 {
	total := fs.Len()
	base := id * fs.segmentSize
	if base >= total {
		return 0
	}
	remain := total - base
	if remain > fs.segmentSize {
		return fs.segmentSize
	}
	return remain
}

// Close implements Store. Outstanding pinned views remain valid (they
// hold their own byte slices), but further Read calls fail.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	fs.closed = true
	fs.mu.Unlock()
	return fs.file.Close()
}
