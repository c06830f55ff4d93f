// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package matcher implements the per-predicate line matcher: an
// append-only sorted sequence of line numbers classified in the
// background against the evolving line index and segment store, plus
// the user-toggled Bookmarks variant.
package matcher

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvrterm/bvr/internal/lineutil"
	"github.com/bvrterm/bvr/internal/pubseq"
	"github.com/bvrterm/bvr/lineindex"
	"github.com/bvrterm/bvr/segstore"
)

// PollInterval is how often an idle matcher worker checks for newly
// indexed lines.
var PollInterval = 10 * time.Millisecond

// Kind identifies how a Matcher's predicate was constructed.
type Kind int

const (
	KindRegex Kind = iota
	KindLiteral
)

func (k Kind) String() string {
	if k == KindLiteral {
		return "literal"
	}
	return "regex"
}

// Matcher holds a predicate, its append-only sorted sequence of matching
// line numbers, and an ingestion cursor advanced by a single background
// worker. It has a non-owning back-reference to the index and store it
// reads from; if the session that owns them is closed out from under a
// still-running matcher, the worker terminates quietly on its next
// read error rather than panicking.
type Matcher struct {
	Kind    Kind
	Pattern string

	pred      Predicate
	idx       *lineindex.Index
	store     segstore.Store
	published *pubseq.Seq[uint64]
	cursor    atomic.Uint64
	cancelled atomic.Bool
	wg        sync.WaitGroup
}

// NewRegex compiles pattern synchronously (returning ErrBadPattern on
// failure, before anything is installed) and starts a background
// worker classifying lines against idx/store.
func NewRegex(pattern string, idx *lineindex.Index, store segstore.Store) (*Matcher, error) {
	pred, err := NewRegexPredicate(pattern)
	if err != nil {
		return nil, err
	}
	return newMatcher(KindRegex, pattern, pred, idx, store), nil
}

// NewLiteral starts a background worker matching lines containing
// needle as a substring.
func NewLiteral(needle string, idx *lineindex.Index, store segstore.Store) *Matcher {
	return newMatcher(KindLiteral, needle, NewLiteralPredicate(needle), idx, store)
}

func newMatcher(kind Kind, pattern string, pred Predicate, idx *lineindex.Index, store segstore.Store) *Matcher {
	m := &Matcher{
		Kind:      kind,
		Pattern:   pattern,
		pred:      pred,
		idx:       idx,
		store:     store,
		published: pubseq.New[uint64](256),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *Matcher) run() {
	defer m.wg.Done()

	for {
		if m.cancelled.Load() {
			return
		}

		n := m.idx.LineCount()
		cur := int(m.cursor.Load())
		if cur >= n {
			time.Sleep(PollInterval)
			continue
		}

		// classify a bounded batch per wakeup so cancellation stays
		// responsive even against a fast-growing index.
		batchEnd := n
		if batchEnd-cur > 4096 {
			batchEnd = cur + 4096
		}

		next := cur
		for i := cur; i < batchEnd; i++ {
			if m.cancelled.Load() {
				return
			}

			start, end, err := m.idx.LineRange(i)
			if err != nil {
				// index was truncated from under us or the line isn't
				// ready; back off and retry from the same cursor.
				break
			}

			view, err := m.store.Read(segstore.Range{Start: start, End: end})
			if err != nil {
				log.Printf("error: bvr matcher %q: %s", m.pred, err)
				return
			}

			text := segstore.NewUTF8View(view).String()
			view.Release()

			if m.pred.Match(lineutil.TrimEOLString(text)) {
				m.published.Append(uint64(i))
			}
			next = i + 1
		}

		m.cursor.Store(uint64(next))
		if next < batchEnd {
			time.Sleep(PollInterval)
		}
	}
}

// Count returns the number of lines classified as matching so far.
func (m *Matcher) Count() int { return m.published.Len() }

// Nth returns the k-th smallest matching line number.
func (m *Matcher) Nth(k int) (uint64, bool) { return m.published.At(k) }

// Rank returns the lower-bound position of line n within the published
// sequence (binary search).
func (m *Matcher) Rank(n uint64) int {
	snap := m.published.Snapshot()
	return sort.Search(len(snap), func(i int) bool { return snap[i] >= n })
}

// Cursor returns the next line number this matcher will classify.
func (m *Matcher) Cursor() int { return int(m.cursor.Load()) }

// Close stops the background worker. It does not block; use Wait to
// block until the worker has actually parked.
func (m *Matcher) Close() {
	m.cancelled.Store(true)
}

// Wait blocks until the worker goroutine has returned.
func (m *Matcher) Wait() {
	m.wg.Wait()
}
