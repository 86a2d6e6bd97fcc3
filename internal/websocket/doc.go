// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package websocket pushes sync status and merged records to UI clients.

The Hub owns the set of connected clients and broadcasts Message envelopes:

	{"type": "sync_status",    "data": {"status": "synced", "syncedAt": "...", "pushed": 3}}
	{"type": "records_merged", "data": {"records": [...], "at": "..."}}

Clients may send {"type": "ping"} and receive {"type": "pong"}. The server
also sends protocol pings every 54 seconds and drops a client that does not
answer within 60 seconds.

A client whose send buffer is full is disconnected rather than allowed to
stall the hub. The UI reconnects and receives the next full record set.

Relay subscribes to the event bus and forwards both topics to the hub.
*/
package websocket
