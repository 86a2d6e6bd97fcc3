// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package api serves the local HTTP API the UI talks to.

Routes (all JSON, wrapped in models.APIResponse):

	GET    /api/v1/health          liveness and remote reachability
	GET    /api/v1/status          persistence status (idle, saving, synced, error)
	GET    /api/v1/state           current app state
	PUT    /api/v1/state           replace app state; triggers a debounced save and push
	DELETE /api/v1/records/{id}    delete a record locally and remotely
	GET    /api/v1/session         signed-in physician
	POST   /api/v1/session         sign in with {"token": "<jwt>"}
	DELETE /api/v1/session         sign out
	POST   /api/v1/sync/full       push every record unless unchanged since the last full push
	GET    /api/v1/backup/export   download a bundle
	POST   /api/v1/backup/import   merge a bundle or a bare record array
	GET    /api/v1/ws              WebSocket stream of status and merged records
	GET    /metrics                Prometheus metrics

Every request gets an X-Request-ID and a correlation id on its context and in
its log lines. CORS origins and the per-IP rate limit come from the server
configuration; sign-in, full sync and backup routes have tighter limits.
*/
package api
