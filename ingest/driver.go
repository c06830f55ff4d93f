// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ingest runs the background worker that grows a segment store
// and its line index from a source, one chunk at a time, separating the
// read from the newline scan so the hot path stays a linear byte-window
// search with no per-line allocation.
package ingest

import (
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvrterm/bvr/lineindex"
	"github.com/bvrterm/bvr/segstore"
)

// DefaultChunkSize is the default read size for both loops.
const DefaultChunkSize = 64 * 1024

// FollowPollInterval is how often the file loop re-stats its source
// once it first catches up, when running with Follow enabled.
var FollowPollInterval = 250 * time.Millisecond

// Driver runs on a dedicated goroutine, single-threaded per source. It
// owns the source handle; once started it is the sole writer for both
// the segment store it grows and the line index it populates.
type Driver struct {
	idx       *lineindex.Index
	chunkSize int
	follow    bool

	cancelled atomic.Bool
	state     atomic.Int32
	ingested  atomic.Uint64
	totalKnown atomic.Uint64 // 0 means unknown (stream)

	errMu sync.Mutex
	err   error

	wg sync.WaitGroup

	pendingStart uint64 // single-writer state: offset of the not-yet-committed line
}

// Option configures a Driver at construction.
type Option func(*Driver)

// ChunkSize overrides DefaultChunkSize.
func ChunkSize(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// Follow keeps a file driver alive past the initial EOF, re-polling the
// file for growth (a live log file being written to) until Cancel is
// called. It has no effect on stream drivers, which always follow their
// source until it closes.
func Follow(enabled bool) Option {
	return func(d *Driver) { d.follow = enabled }
}

func newDriver(idx *lineindex.Index, opts []Option) *Driver {
	d := &Driver{idx: idx, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFile starts a file loop: positioned reads against f, scanning each
// chunk for newlines. The segment store's length grows only when Follow
// is enabled and the file gains bytes after the initial read catches up.
func NewFile(fs *segstore.FileStore, f *os.File, idx *lineindex.Index, opts ...Option) *Driver {
	d := newDriver(idx, opts)
	d.wg.Add(1)
	go d.runFile(fs, f)
	return d
}

// NewStream starts a stream loop: reads from src into the store's tail
// segment, scanning newly arrived bytes for newlines.
func NewStream(ss *segstore.StreamStore, src io.Reader, idx *lineindex.Index, opts ...Option) *Driver {
	d := newDriver(idx, opts)
	d.wg.Add(1)
	go d.runStream(ss, src)
	return d
}

// Cancel requests cooperative shutdown. The driver finishes its current
// chunk or line batch, then stops; it does not interrupt an in-flight
// read.
func (d *Driver) Cancel() {
	d.cancelled.Store(true)
}

// Wait blocks until the driver's goroutine has returned.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// Progress returns a snapshot safe to read without blocking on the
// worker or holding any lock on the index.
func (d *Driver) Progress() Progress {
	d.errMu.Lock()
	err := d.err
	d.errMu.Unlock()

	return Progress{
		BytesIngested: d.ingested.Load(),
		TotalBytes:    d.totalKnown.Load(),
		State:         State(d.state.Load()),
		Err:           err,
	}
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
}

func (d *Driver) fail(err error) {
	d.errMu.Lock()
	d.err = err
	d.errMu.Unlock()
	d.setState(StateFailedIO)
	log.Printf("error: bvr ingest: %s", err)
}

// scanChunk scans buf (which begins at absolute offset base in the
// source) for newlines, committing each completed line's start offset
// to the index as it is discovered.
func (d *Driver) scanChunk(buf []byte, base uint64) {
	for i, b := range buf {
		if b != '\n' {
			continue
		}
		d.idx.AppendLineStart(d.pendingStart)
		d.pendingStart = base + uint64(i) + 1
	}
}

// finishLines commits a final trailing partial line (one with no
// terminating newline) if any bytes remain pending when ingestion ends.
func (d *Driver) finishLines(total uint64) {
	if d.pendingStart < total {
		d.idx.AppendLineStart(d.pendingStart)
	}
}

func (d *Driver) runFile(fs *segstore.FileStore, f *os.File) {
	defer d.wg.Done()
	d.setState(StateRunning)

	total := fs.Len()
	d.totalKnown.Store(total)

	buf := make([]byte, d.chunkSize)
	var offset uint64

	for {
		if d.cancelled.Load() {
			d.finishLines(offset)
			d.idx.PublishTotalLen(offset)
			d.setState(StateCancelled)
			log.Printf("trace: bvr ingest: file loop cancelled at offset %d", offset)
			return
		}

		if offset >= total {
			if !d.follow {
				d.finishLines(offset)
				d.idx.PublishTotalLen(offset)
				d.setState(StateCompleteEOF)
				log.Printf("debug: bvr ingest: file loop complete, %d bytes", offset)
				return
			}

			fi, err := f.Stat()
			if err != nil {
				d.fail(err)
				return
			}
			newTotal := uint64(fi.Size())
			if newTotal <= total {
				time.Sleep(FollowPollInterval)
				continue
			}
			total = newTotal
			fs.GrowTo(total)
			d.totalKnown.Store(total)
			continue
		}

		want := buf
		if total-offset < uint64(len(buf)) {
			want = buf[:total-offset]
		}

		n, err := f.ReadAt(want, int64(offset))
		if n > 0 {
			d.scanChunk(want[:n], offset)
			offset += uint64(n)
			d.ingested.Store(offset)
			d.idx.PublishTotalLen(offset)
		}

		if err != nil && err != io.EOF {
			d.fail(err)
			return
		}
	}
}

func (d *Driver) runStream(ss *segstore.StreamStore, src io.Reader) {
	defer d.wg.Done()
	d.setState(StateRunning)

	for {
		if d.cancelled.Load() {
			total := ss.Len()
			d.finishLines(total)
			d.idx.PublishTotalLen(total)
			d.setState(StateCancelled)
			log.Printf("trace: bvr ingest: stream loop cancelled at %d bytes", total)
			return
		}

		before := ss.Len()
		n, err := ss.AppendFrom(src, d.chunkSize)
		if n > 0 {
			view, verr := ss.Read(segstore.Range{Start: before, End: before + uint64(n)})
			if verr != nil {
				d.fail(verr)
				return
			}
			d.scanChunk(view.Bytes(), before)
			view.Release()

			total := before + uint64(n)
			d.ingested.Store(total)
			d.idx.PublishTotalLen(total)
		}

		if errors.Is(err, io.EOF) {
			d.finishLines(ss.Len())
			d.idx.PublishTotalLen(ss.Len())
			d.setState(StateCompleteEOF)
			log.Printf("debug: bvr ingest: stream loop complete, %d bytes", ss.Len())
			return
		}
		if err != nil {
			d.fail(err)
			return
		}
		if n == 0 {
			// defensive: a well-behaved io.Reader returns io.EOF instead,
			// but avoid spinning if one doesn't.
			d.finishLines(ss.Len())
			d.idx.PublishTotalLen(ss.Len())
			d.setState(StateCompleteEOF)
			return
		}
	}
}
