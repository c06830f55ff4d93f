// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package segstore

import "unicode/utf8"

// PinnedView is a borrow of a byte range that keeps its backing segment
// resident for as long as the view is alive. Spanning views (ranges that
// cross a segment boundary) are materialized eagerly by copy, so they
// hold no pin at all - the bytes are already safe.
type PinnedView struct {
	data     []byte
	spanning bool
	released bool
	unpin    func()
}

// Bytes returns the borrowed byte range. The slice must not be retained
// past Release.
func (v *PinnedView) Bytes() []byte {
	return v.data
}

// Spanning reports whether this view required a copy across a segment
// boundary.
func (v *PinnedView) Spanning() bool {
	return v.spanning
}

// Release drops the view's claim on its segment, allowing it to be
// evicted again (file-backed stores only; a no-op otherwise). Release is
// idempotent.
func (v *PinnedView) Release() {
	if v.released {
		return
	}
	v.released = true
	if v.unpin != nil {
		v.unpin()
	}
}

// UTF8View validates (and if necessary, lossily repairs) a PinnedView's
// bytes as UTF-8 at construction time.
type UTF8View struct {
	*PinnedView
	text string
}

// NewUTF8View wraps a PinnedView, replacing invalid byte sequences with
// the Unicode replacement character so the result is always valid UTF-8.
func NewUTF8View(v *PinnedView) *UTF8View {
	b := v.Bytes()
	if utf8.Valid(b) {
		return &UTF8View{PinnedView: v, text: string(b)}
	}
	return &UTF8View{PinnedView: v, text: toValidUTF8(b)}
}

// String returns the validated UTF-8 text of the view.
func (v *UTF8View) String() string {
	return v.text
}

func toValidUTF8(b []byte) string {
	out := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}
