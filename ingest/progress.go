// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ingest

// State is the completion state of an ingest driver.
type State int32

const (
	// StateRunning is the initial and steady-state value while the
	// driver is still reading and scanning.
	StateRunning State = iota
	// StateCompleteEOF means the source was fully consumed successfully.
	StateCompleteEOF
	// StateCancelled means the driver stopped cooperatively at the next
	// scan boundary after Cancel was called.
	StateCancelled
	// StateFailedIO means a read against the source failed; everything
	// already published remains queryable.
	StateFailedIO
)

// String implements fmt.Stringer for log messages.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleteEOF:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateFailedIO:
		return "failed_io"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time snapshot of an ingest driver's state. It is
// safe to read from any goroutine without holding any lock on the index.
type Progress struct {
	BytesIngested uint64
	// TotalBytes is the known total size for file sources, or 0 for
	// streams (unknown length).
	TotalBytes uint64
	State      State
	Err        error
}

// Fraction returns BytesIngested/TotalBytes in [0,1], or -1 if the total
// is unknown (stream sources report progress as a raw byte count only).
func (p Progress) Fraction() float64 {
	if p.TotalBytes == 0 {
		return -1
	}
	return float64(p.BytesIngested) / float64(p.TotalBytes)
}
