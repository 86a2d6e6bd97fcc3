// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package remote

import "errors"

// ErrStoreClosed is returned by every operation on a closed store.
var ErrStoreClosed = errors.New("remote store is closed")
