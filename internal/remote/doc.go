// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package remote provides the DocumentStore backends used by the sync engine.

Backends:

  - MemoryStore: in-process store with snapshot watchers, used for tests and
    the "memory" backend.
  - NATSStore: JetStream key-value bucket shared by every client of a user.
  - BreakerStore: wraps any DocumentStore and routes writes through a
    circuit breaker.

EmbeddedServer runs a single-node nats-server with JetStream in the same
process, for development and tests.

# Key Layout

NATSStore keeps every document of every user in one bucket:

	u.<uid>.<collection>.<id>

uid and id are base64url encoded so that any character is allowed in them.
Watch subscribes to u.<uid>.<collection>.> and rebuilds the full snapshot
after each change.
*/
package remote
