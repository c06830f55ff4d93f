// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package matcher_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/bvrterm/bvr/lineindex"
	"github.com/bvrterm/bvr/matcher"
	"github.com/bvrterm/bvr/segstore"
)

func buildStore(t *testing.T, content []byte) (*segstore.StreamStore, *lineindex.Index) {
	t.Helper()
	ss := segstore.NewStreamStore(64)
	t.Cleanup(func() { ss.Close() })

	idx := lineindex.New()
	n, err := ss.AppendFrom(bytes.NewReader(content), len(content))
	if err != nil && err.Error() != "EOF" {
		t.Fatal(err)
	}
	_ = n

	var lineStart uint64
	for i, b := range content {
		if b == '\n' {
			idx.AppendLineStart(lineStart)
			lineStart = uint64(i) + 1
		}
	}
	if lineStart < uint64(len(content)) {
		idx.AppendLineStart(lineStart)
	}
	idx.PublishTotalLen(uint64(len(content)))

	return ss, idx
}

func waitCount(t *testing.T, m interface{ Count() int }, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Count() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for count %d, got %d", want, m.Count())
}

func TestRegexMatcherBasic(t *testing.T) {
	ss, idx := buildStore(t, []byte("a\nbb\nccc\n"))

	m, err := matcher.NewRegex("^c", idx, ss)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	waitCount(t, m, 1)
	line, ok := m.Nth(0)
	if !ok || line != 2 {
		t.Fatalf("expected match on line 2, got %d ok=%v", line, ok)
	}
}

func TestLiteralMatcher(t *testing.T) {
	ss, idx := buildStore(t, []byte("foo\nbar\nfoobar\n"))

	m := matcher.NewLiteral("foo", idx, ss)
	defer m.Close()

	waitCount(t, m, 2)
	first, _ := m.Nth(0)
	second, _ := m.Nth(1)
	if first != 0 || second != 2 {
		t.Fatalf("expected lines [0,2], got [%d,%d]", first, second)
	}
}

func TestBadPatternRejectedSynchronously(t *testing.T) {
	ss, idx := buildStore(t, []byte("a\n"))

	_, err := matcher.NewRegex("(", idx, ss)
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestEmptyPatternMatchesEveryLine(t *testing.T) {
	ss, idx := buildStore(t, []byte("a\nb\nc\n"))

	m, err := matcher.NewRegex("", idx, ss)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	waitCount(t, m, 3)
}

func TestMatcherRank(t *testing.T) {
	ss, idx := buildStore(t, []byte("x\nfoo\nx\nfoo\nx\n"))

	m := matcher.NewLiteral("foo", idx, ss)
	defer m.Close()

	waitCount(t, m, 2)
	if got := m.Rank(2); got != 1 {
		t.Fatalf("expected rank 1, got %d", got)
	}
}

func TestBookmarksToggle(t *testing.T) {
	b := matcher.NewBookmarks()

	if on := b.Toggle(5); !on {
		t.Fatal("expected bookmark to become enabled")
	}
	if on := b.Toggle(2); !on {
		t.Fatal("expected bookmark to become enabled")
	}
	if b.Count() != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", b.Count())
	}

	first, _ := b.Nth(0)
	if first != 2 {
		t.Fatalf("expected sorted order, first = %d", first)
	}

	if on := b.Toggle(5); on {
		t.Fatal("expected bookmark to become disabled")
	}
	if b.Count() != 1 {
		t.Fatalf("expected 1 bookmark after removal, got %d", b.Count())
	}
}
