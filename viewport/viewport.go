// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package viewport composes a page-sized window of rendered lines from
// a line index, a segment store and a composite filter, without
// blocking on ingestion or matcher workers.
package viewport

import (
	"github.com/bvrterm/bvr/composite"
	"github.com/bvrterm/bvr/internal/lineutil"
	"github.com/bvrterm/bvr/lineindex"
	"github.com/bvrterm/bvr/segstore"
)

// Row is one rendered line: its absolute line number and text with the
// trailing line terminator stripped.
type Row struct {
	LineNo uint64
	Text   string
}

// Composer resolves (top_k, height, composite) queries into rendered
// rows. It holds no retained state across calls besides its
// back-references; every query re-reads the current index/store/filter
// state.
type Composer struct {
	idx   *lineindex.Index
	store segstore.Store
}

// New returns a Composer rendering over idx and store.
func New(idx *lineindex.Index, store segstore.Store) *Composer {
	return &Composer{idx: idx, store: store}
}

// View renders up to height rows starting at filtered position topK.
// Rows past the end of the filtered sequence are simply omitted; this
// is never an error, per the OutOfRange-is-soft policy for viewport
// queries.
func (c *Composer) View(topK, height int, comp *composite.Composite) ([]Row, error) {
	if topK < 0 || height <= 0 {
		return nil, nil
	}

	rows := make([]Row, 0, height)
	for k := topK; k < topK+height; k++ {
		lineNo, ok := comp.FilteredNth(k)
		if !ok {
			break
		}

		start, end, err := c.idx.LineRange(int(lineNo))
		if err != nil {
			break
		}

		text, err := c.readLine(start, end)
		if err != nil {
			break
		}

		rows = append(rows, Row{LineNo: lineNo, Text: text})
	}
	return rows, nil
}

// readLine reads [start,end) and returns its text with the trailing
// line terminator stripped.
func (c *Composer) readLine(start, end uint64) (string, error) {
	view, err := c.store.Read(segstore.Range{Start: start, End: end})
	if err != nil {
		return "", err
	}
	defer view.Release()

	text := segstore.NewUTF8View(view).String()
	return lineutil.TrimEOLString(text), nil
}

// FollowTop returns the top_k that anchors the bottom row of a
// height-tall viewport to the latest filtered line.
func FollowTop(filteredLen, height int) int {
	top := filteredLen - height
	if top < 0 {
		return 0
	}
	return top
}

// GotoLineUnion returns the top_k for "goto line n" under Union
// composition: the nearest member at or before n.
func GotoLineUnion(comp *composite.Composite, n uint64) int {
	rank := comp.Rank(n)
	if line, ok := comp.FilteredNth(rank); ok && line == n {
		return rank
	}
	if rank == 0 {
		return 0
	}
	return rank - 1
}

// GotoLineIntersectFloor returns the top_k for "goto line n" under
// Intersect, choosing the nearest member at or before n. Source
// behavior for goto-line under Intersect is ambiguous (spec §9); both
// floor and ceil variants are exposed so the caller can choose.
func GotoLineIntersectFloor(comp *composite.Composite, n uint64) int {
	rank := comp.Rank(n)
	if line, ok := comp.FilteredNth(rank); ok && line == n {
		return rank
	}
	if rank == 0 {
		return 0
	}
	return rank - 1
}

// GotoLineIntersectCeil returns the top_k for "goto line n" under
// Intersect, choosing the nearest member at or after n.
func GotoLineIntersectCeil(comp *composite.Composite, n uint64) int {
	return comp.Rank(n)
}

// Pan returns the substring of text starting at the given column
// offset (in runes), clamped to the line's length. It retains no
// state: horizontal scroll position lives entirely in the caller.
func Pan(text string, col int) string {
	runes := []rune(text)
	if col < 0 {
		col = 0
	}
	if col >= len(runes) {
		return ""
	}
	return string(runes[col:])
}
