// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package main is the Wardbook server: a physician's record store that keeps a
local copy of every record and synchronizes it with a remote document store.

# Application Architecture

The server initializes components in the following order:

 1. Configuration: defaults, optional config file and environment (Koanf v2)
 2. Local store: BadgerDB, restored into the initial app state
 3. Remote: none, in-memory, or NATS JetStream KV (optionally embedded),
    wrapped in a circuit breaker
 4. Session: JWT sign-in, optionally from SESSION_TOKEN
 5. Sync engine, dirty tracker and the persistence orchestrator
 6. Event bus (memory or NATS) feeding the WebSocket hub
 7. HTTP API
 8. Supervisor tree with data, sync and API layers

# Configuration

	CONFIG_PATH=/etc/wardbook/config.yaml   # optional file
	STORE_PATH=/data/wardbook/local
	REMOTE_BACKEND=nats                     # none, memory, nats
	NATS_EMBEDDED=true
	EVENTS_BACKEND=nats
	JWT_SECRET=$(openssl rand -base64 32)
	BACKUP_ENABLED=true

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server first and the persistence service last, whose final flush saves and
pushes any pending edits.
*/
package main
