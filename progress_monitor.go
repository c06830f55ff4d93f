// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bvr

import (
	"log"
	"time"

	"github.com/bvrterm/bvr/ingest"
)

// ProgressMonitor periodically logs a session's ingest progress at a
// given interval, until the session reaches a terminal state. The CLI
// front-end uses it to report progress on non-interactive runs; the
// interactive pager instead polls Session.Progress directly from its
// render loop.
type ProgressMonitor struct {
	s *Session
}

// NewProgressMonitor returns a monitor for s. Call Start to begin
// logging.
func NewProgressMonitor(s *Session) *ProgressMonitor {
	return &ProgressMonitor{s: s}
}

// Start runs the monitor loop until the session's ingest reaches a
// terminal state, then returns. It is meant to be run in its own
// goroutine.
func (pm *ProgressMonitor) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		p := pm.s.Progress()
		log.Printf("trace: bvr ingest progress bytes=%d state=%s", p.BytesIngested, p.State)

		switch p.State {
		case ingest.StateCompleteEOF, ingest.StateCancelled:
			return
		case ingest.StateFailedIO:
			log.Printf("error: bvr ingest failed: %s", p.Err)
			return
		}
	}
}
