// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package bvr is the core of the pager: an open buffer over a file or
// a stream, its line index, its composable matchers and the viewport
// that renders filtered pages over all of it. It has no terminal or
// keybinding concerns; those live in cmd/bvr.
package bvr

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/bvrterm/bvr/composite"
	"github.com/bvrterm/bvr/ingest"
	"github.com/bvrterm/bvr/lineindex"
	"github.com/bvrterm/bvr/matcher"
	"github.com/bvrterm/bvr/segstore"
	"github.com/bvrterm/bvr/viewport"
)

// Option configures a Session at Open time.
type Option func(*config)

type config struct {
	chunkSize   int
	follow      bool
	segmentSize uint64
	cacheCap    int
}

func defaultConfig() config {
	return config{
		chunkSize:   ingest.DefaultChunkSize,
		segmentSize: segstore.DefaultSegmentSize,
		cacheCap:    64,
	}
}

// ChunkSize sets the ingest driver's read chunk size.
func ChunkSize(n int) Option {
	return func(c *config) { c.chunkSize = n }
}

// Follow enables tailing a growing file-backed source after reaching
// EOF, polling for appended bytes instead of treating EOF as final.
// It has no effect on stream sources, which always follow.
func Follow(enabled bool) Option {
	return func(c *config) { c.follow = enabled }
}

// SegmentSize sets the segment store's segment size in bytes.
func SegmentSize(n uint64) Option {
	return func(c *config) { c.segmentSize = n }
}

// CacheCapacity sets the number of resident segments (pinned ones
// included) a file-backed session keeps before evicting unpinned ones.
func CacheCapacity(n int) Option {
	return func(c *config) { c.cacheCap = n }
}

// SessionInfo is a point-in-time snapshot of a session's identity and
// size, safe to read without blocking any worker.
type SessionInfo struct {
	ID         uuid.UUID
	Streaming  bool
	TotalBytes uint64
	LineCount  int
}

// Session is an open buffer: its segment store, its line index, its
// ingest driver, and the composite/viewport pair that serve filtered
// views over it.
type Session struct {
	id        uuid.UUID
	streaming bool

	file  *os.File
	store segstore.Store

	idx      *lineindex.Index
	driver   *ingest.Driver
	comp     *composite.Composite
	composer *viewport.Composer

	mu        sync.Mutex
	bookmarks *matcher.Bookmarks
	matchers  []*matcher.Matcher
	closed    bool
}

// Open opens source as a pager buffer. source is either a string path
// to a seekable file, the sentinel "-" for stdin, or an io.Reader for
// an already-open forward stream.
func Open(source any, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	switch v := source.(type) {
	case string:
		if v == "-" {
			return openStream(os.Stdin, cfg)
		}
		return openFile(v, cfg)
	case io.Reader:
		return openStream(v, cfg)
	default:
		return nil, newErr(KindSourceIO, "unsupported source type", nil)
	}
}

func openFile(path string, cfg config) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(KindSourceIO, "open "+path, err)
	}

	fs, err := segstore.OpenFileStore(f, cfg.segmentSize, cfg.cacheCap)
	if err != nil {
		f.Close()
		return nil, newErr(KindSourceIO, "open file store", err)
	}

	idx := lineindex.New()
	driver := ingest.NewFile(fs, f, idx, ingest.ChunkSize(cfg.chunkSize), ingest.Follow(cfg.follow))

	s := newSession(f, fs, idx, driver, false)
	log.Printf("info: bvr session %s opened file %q", s.id, path)
	return s, nil
}

func openStream(r io.Reader, cfg config) (*Session, error) {
	ss := segstore.NewStreamStore(cfg.segmentSize)

	idx := lineindex.New()
	driver := ingest.NewStream(ss, r, idx, ingest.ChunkSize(cfg.chunkSize))

	s := newSession(nil, ss, idx, driver, true)
	log.Printf("info: bvr session %s opened stream", s.id)
	return s, nil
}

func newSession(f *os.File, store segstore.Store, idx *lineindex.Index, driver *ingest.Driver, streaming bool) *Session {
	bookmarks := matcher.NewBookmarks()
	comp := composite.New(idx)
	comp.AddOptional(bookmarks)

	return &Session{
		id:        uuid.New(),
		streaming: streaming,
		file:      f,
		store:     store,
		idx:       idx,
		driver:    driver,
		comp:      comp,
		composer:  viewport.New(idx, store),
		bookmarks: bookmarks,
	}
}

// NewMatcher compiles pattern and starts a background matcher against
// this session's index and store. kind selects a regex or literal
// predicate. The matcher is added to the composite, enabled.
func (s *Session) NewMatcher(kind matcher.Kind, pattern string) (*matcher.Matcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, newErr(KindCancelled, "session closed", nil)
	}

	var m *matcher.Matcher
	var err error
	switch kind {
	case matcher.KindLiteral:
		m = matcher.NewLiteral(pattern, s.idx, s.store)
	default:
		m, err = matcher.NewRegex(pattern, s.idx, s.store)
		if err != nil {
			return nil, newErr(KindBadPattern, pattern, err)
		}
	}

	s.matchers = append(s.matchers, m)
	s.comp.Add(m)
	return m, nil
}

// RemoveMatcher stops and detaches a matcher previously created with
// NewMatcher.
func (s *Session) RemoveMatcher(m *matcher.Matcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Close()
	s.comp.SetEnabled(m, false)
	for i, cand := range s.matchers {
		if cand == m {
			s.matchers = append(s.matchers[:i], s.matchers[i+1:]...)
			break
		}
	}
}

// Bookmarks returns the session's user-toggled bookmark set, always
// present and always a member of the composite filter.
func (s *Session) Bookmarks() *matcher.Bookmarks {
	return s.bookmarks
}

// SetMode switches the composite between Union and Intersect.
func (s *Session) SetMode(mode composite.Mode) {
	s.comp.SetMode(mode)
}

// SetMatcherEnabled toggles whether m participates in the composite
// filter without stopping its background worker.
func (s *Session) SetMatcherEnabled(m *matcher.Matcher, enabled bool) {
	s.comp.SetEnabled(m, enabled)
}

// View renders up to height rows of the filtered buffer starting at
// filtered position topK.
func (s *Session) View(topK, height int) ([]viewport.Row, error) {
	return s.composer.View(topK, height, s.comp)
}

// FilteredLen returns the current number of lines passing the
// composite filter.
func (s *Session) FilteredLen() int {
	return s.comp.FilteredLen()
}

// Rank returns the composite's rank of line n, used to drive
// goto-line and follow-tail positioning in the UI layer.
func (s *Session) Rank(n uint64) int {
	return s.comp.Rank(n)
}

// Info returns a snapshot of the session's identity and current size.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:         s.id,
		Streaming:  s.streaming,
		TotalBytes: s.idx.TotalLen(),
		LineCount:  s.idx.LineCount(),
	}
}

// Progress returns the ingest driver's current progress.
func (s *Session) Progress() ingest.Progress {
	return s.driver.Progress()
}

// Close cancels ingestion and every active matcher, then releases the
// underlying store and file. It blocks until all workers have parked.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	matchers := s.matchers
	s.matchers = nil
	s.mu.Unlock()

	s.driver.Cancel()
	s.driver.Wait()

	for _, m := range matchers {
		m.Close()
	}
	for _, m := range matchers {
		m.Wait()
	}

	err := s.store.Close()
	if s.file != nil {
		logClose(s.file)
	}

	log.Printf("info: bvr session %s closed", s.id)
	return err
}
