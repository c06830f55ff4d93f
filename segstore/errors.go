// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package segstore

import "errors"

var (
	// ErrOutOfRange is returned when a requested byte range exceeds Len().
	ErrOutOfRange = errors.New("segstore: range out of bounds")

	// ErrClosed is returned on any operation against a closed store.
	ErrClosed = errors.New("segstore: store closed")
)
