// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package integration_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bvrterm/bvr"
	"github.com/bvrterm/bvr/composite"
	"github.com/bvrterm/bvr/ingest"
	"github.com/bvrterm/bvr/matcher"
)

func writeFixture(content string) string {
	dir, err := os.MkdirTemp("", "bvr-integration")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "log.txt")
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

func waitComplete(sess *bvr.Session) {
	Eventually(func() ingest.State {
		return sess.Progress().State
	}, 2*time.Second, 5*time.Millisecond).Should(Equal(ingest.StateCompleteEOF))
}

func waitMatcherCount(m *matcher.Matcher, want int) {
	Eventually(m.Count, 2*time.Second, time.Millisecond).Should(Equal(want))
}

var _ = Describe("Session over a file", func() {
	var (
		sess    *bvr.Session
		needle  *matcher.Matcher
		barMatch *matcher.Matcher
	)

	const fixture = "alpha\nneedle\nbeta\ngamma\nneedle bar\nbar\n"

	BeforeEach(func() {
		path := writeFixture(fixture)

		var err error
		sess, err = bvr.Open(path)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { sess.Close() })

		waitComplete(sess)
		Expect(sess.Info().LineCount).To(Equal(6))

		needle, err = sess.NewMatcher(matcher.KindRegex, "needle")
		Expect(err).NotTo(HaveOccurred())
		barMatch, err = sess.NewMatcher(matcher.KindLiteral, "bar")
		Expect(err).NotTo(HaveOccurred())

		waitMatcherCount(needle, 2)
		waitMatcherCount(barMatch, 2)
	})

	It("unions matchers by default", func() {
		Expect(sess.FilteredLen()).To(Equal(3))

		rows, err := sess.View(0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0].LineNo).To(BeEquivalentTo(1))
		Expect(rows[1].LineNo).To(BeEquivalentTo(4))
		Expect(rows[2].LineNo).To(BeEquivalentTo(5))
		Expect(rows[1].Text).To(Equal("needle bar"))
	})

	It("intersects matchers when switched to Intersect mode", func() {
		sess.SetMode(composite.Intersect)

		Expect(sess.FilteredLen()).To(Equal(1))
		rows, err := sess.View(0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].LineNo).To(BeEquivalentTo(4))
	})

	It("supports jump-to-line via composite rank under Union", func() {
		// members are {1,4,5}; line 3 is not a member, and its rank
		// counts the members below it ({1}), so the viewport anchored
		// at that rank starts at the next member, line 4.
		rank := sess.Rank(3)
		Expect(rank).To(Equal(1))

		rows, err := sess.View(rank, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].LineNo).To(BeEquivalentTo(4))
	})

	It("excludes a disabled matcher from the composite", func() {
		sess.SetMatcherEnabled(barMatch, false)

		Expect(sess.FilteredLen()).To(Equal(2))
		rows, err := sess.View(0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0].LineNo).To(BeEquivalentTo(1))
		Expect(rows[1].LineNo).To(BeEquivalentTo(4))
	})

	It("includes bookmarked lines under Union alongside matchers", func() {
		sess.Bookmarks().Toggle(2)

		Expect(sess.FilteredLen()).To(Equal(4))
		rows, err := sess.View(0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0].LineNo).To(BeEquivalentTo(1))
		Expect(rows[1].LineNo).To(BeEquivalentTo(2))
	})
})

var _ = Describe("Session over an empty buffer", func() {
	It("reports zero lines and an empty view", func() {
		path := writeFixture("")

		sess, err := bvr.Open(path)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { sess.Close() })

		waitComplete(sess)
		Expect(sess.Info().LineCount).To(Equal(0))

		rows, err := sess.View(0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})
})

var _ = Describe("Session with a bad pattern", func() {
	It("rejects the matcher synchronously and installs nothing", func() {
		path := writeFixture("a\n")

		sess, err := bvr.Open(path)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { sess.Close() })

		waitComplete(sess)

		_, err = sess.NewMatcher(matcher.KindRegex, "(")
		Expect(err).To(HaveOccurred())
		Expect(bvr.KindOf(err)).To(Equal(bvr.KindBadPattern))

		// the composite is unaffected: still transparent (no enabled
		// matchers besides the empty bookmark set).
		Expect(sess.FilteredLen()).To(Equal(1))
	})
})
