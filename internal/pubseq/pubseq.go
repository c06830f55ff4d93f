// Package pubseq implements the single-writer/many-reader append-only
// sequence used throughout bvr: a line index is a Seq[uint64] of byte
// offsets, a line matcher is a Seq[uint64] of line numbers. One writer
// appends; any number of readers take a lock-free snapshot and see a
// consistent prefix, even while the writer is actively growing the
// backing storage.
package pubseq

import (
	"sync"
	"sync/atomic"
)

// Seq is an append-only sequence of T, safe for one writer and many
// concurrent readers. The zero value is not usable; use New.
type Seq[T any] struct {
	// committed is the published length: readers acquire-load it and
	// may only index entries below it. The writer store-releases it
	// only after the entries are fully written into the backing array.
	committed atomic.Uint64

	// backing holds the current storage. Growth allocates a new,
	// larger array, copies the live prefix into it, and swaps the
	// pointer; the old array is left for any reader still holding it
	// until that reader's snapshot goes out of scope (Go's GC retains
	// it via the slice header captured in Snapshot).
	mu      sync.Mutex
	backing atomic.Pointer[[]T]
}

// New returns an empty Seq with initial backing capacity cap, raised to
// 8 if smaller.
func New[T any](cap int) *Seq[T] {
	if cap < 8 {
		cap = 8
	}
	s := &Seq[T]{}
	init := make([]T, 0, cap)
	s.backing.Store(&init)
	return s
}

// Len returns the published length.
func (s *Seq[T]) Len() int {
	return int(s.committed.Load())
}

// Snapshot returns a read-only view over the currently published prefix.
// The returned slice is never mutated in place and remains valid forever,
// even if the writer appends more entries afterward or the backing array
// is grown and replaced.
func (s *Seq[T]) Snapshot() []T {
	n := s.committed.Load()
	b := *s.backing.Load()
	return b[:n:n]
}

// At returns entry i if i is within the published prefix.
func (s *Seq[T]) At(i int) (v T, ok bool) {
	n := s.committed.Load()
	if i < 0 || uint64(i) >= n {
		return v, false
	}
	b := *s.backing.Load()
	return b[i], true
}

// Append adds values to the sequence and publishes them atomically.
// Append must only ever be called by the single writer owning this Seq;
// concurrent Append calls are not supported (mirrors the single-writer
// contract of the append-only structures described for the line index
// and line matchers).
func (s *Seq[T]) Append(values ...T) {
	if len(values) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.backing.Load()
	n := int(s.committed.Load())

	if n+len(values) > cap(cur) {
		newCap := cap(cur) * 2
		if newCap < n+len(values) {
			newCap = n + len(values)
		}
		grown := make([]T, n, newCap)
		copy(grown, cur[:n])
		cur = grown
		s.backing.Store(&cur)
	}

	cur = cur[:n+len(values)]
	copy(cur[n:], values)
	// the writer's own backing pointer already has capacity for this
	// write (either it was large enough, or we just grew it above), so
	// resizing the slice header here is visible to any future Snapshot
	// through the backing pointer already stored.
	s.backing.Store(&cur)

	// store-release: entries below committed are now guaranteed fully
	// written into the backing array readers will observe.
	s.committed.Store(uint64(n + len(values)))
}
