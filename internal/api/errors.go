// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import "errors"

var (
	// ErrBodyTooLarge indicates a request body over maxBodyBytes.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrNotSignedIn indicates an operation that needs a signed-in user.
	ErrNotSignedIn = errors.New("not signed in")
)
