// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package persistence turns application state changes into local saves and
remote pushes.

Every Observe call moves the status to saving and restarts a debounce timer.
When the timer fires, the latest observed state is processed:

 1. every slice is written to the local store
 2. the tracker computes the records changed since their last push
 3. if any changed and the remote is available, the engine pushes them
 4. on success exactly the pushed (id, updatedAt) pairs are marked synced

The resulting status is synced after a successful push, or when nothing
needed pushing and the remote is available. It is idle when the remote is
unavailable, and error when the push failed. A failed push leaves the tracker
unchanged, so the next change retries the same records.

	idle ──Observe──▶ saving ──▶ synced | idle | error
	                    ▲                    │
	                    └─────Observe────────┘

Restore rebuilds the start-up AppState from the local store.
*/
package persistence
