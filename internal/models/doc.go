// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package models defines the data structures shared across Wardbook.

Record is the synchronized entity: one patient encounter with free-form
clinical text, sub-tasks and attachment descriptors. Its UpdatedAt field
(epoch milliseconds, see Millis) is the only input to conflict resolution.

The remaining types (Task, Bookmark, BookmarkCategory, PatientType, User,
SecuritySettings, Preferences) are local-only slices persisted to the local
store but never pushed.

Values of these types are only produced by the validation package, which
parses untyped payloads from local storage, the remote store and imported
backups. Code outside that package can assume every model is well formed.

JSON field names are camelCase to stay compatible with documents written by
earlier clients.
*/
package models
