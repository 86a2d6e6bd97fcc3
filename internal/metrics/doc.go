// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package metrics defines the Prometheus collectors exported on /metrics.

Collectors are registered on the default registry through promauto at
package init. Packages record through the Record* and Set* helpers rather
than touching collectors directly:

	metrics.RecordPush(time.Since(start), pushed, err)
	metrics.SetPersistenceStatus("synced")

# Metric groups

Sync: push duration, records pushed, push errors by type, skipped pushes,
batch sizes, last success time, conflicts, merged record count.

Validation and local store: entries dropped per source, failed local saves
by key and reason.

Persistence: the current status (one gauge per status, 1 for the active
one), cycle outcomes and durations.

Remote store and resilience: per-operation latency and errors, plus circuit
breaker state, requests, consecutive failures and transitions.

Edges: API request counts and latency, rate limit hits, WebSocket
connections and messages, event bus publishes, backup archives.

No metric carries record ids, user ids or any record content as a label.
*/
package metrics
