// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package sync reconciles the local record set with the remote document store.

Conflicts are settled by last-write-wins on Record.UpdatedAt. A record
without a timestamp compares as zero. Concurrent edits to the same record in
the same write window are resolved silently in favour of the later
timestamp.

# Components

Tracker remembers, per record id, the UpdatedAt that was last pushed. A
record is dirty when it is unknown to the tracker or newer than that value.
The tracker lives in memory only, so after a restart every record is pushed
once more; pushes are full-document overwrites, which makes that harmless.

Engine talks to a DocumentStore on behalf of the signed-in user:

	engine := sync.NewEngine(store, session)
	defer engine.Close()

	err := engine.Push(ctx, tracker.Dirty(records))
	unsubscribe := engine.Subscribe(ctx, func(all []models.Record) { state.ReplaceRecords(all) })
	defer unsubscribe()

When no store is configured or nobody is signed in, every remote operation
is a silent no-op. Offline is a normal state, not an error.

# Push

Push splits its input into chunks of ChunkSize (400) and commits them one
after another. Each record is stamped with SyncMeta (source "local", the user
id and the push time) before it is written. The first failing chunk aborts
the push and its error is returned wrapped; later chunks are not written.

PushAll pushes the whole set unless its ContentHash matches the last
successful full push.

# Subscribe

Subscribe opens one watch on the primary collection and one on the legacy
collection. Both feed snapshots into a single goroutine that owns a Merger.
For each snapshot the Merger validates the documents, drops ids with a
pending-deletion tombstone, stores the result as that collection's view and
recomputes Merge(legacy, primary). The callback always receives the complete
merged set.

Merge takes legacy as the base and overlays primary. A primary copy replaces
the base copy when its UpdatedAt is greater than or equal; otherwise the base
copy is kept and a conflict is reported. Conflict warnings are limited to one
per id every ConflictLogWindow.

# Deletion

MarkPendingDeletion records a tombstone for TombstoneTTL (30s) so that a
snapshot still carrying the record, typically the echo of the state before
the delete, cannot bring it back.
*/
package sync
