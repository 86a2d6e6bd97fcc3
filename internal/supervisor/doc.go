// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package supervisor runs the server's long-lived components under a suture
supervisor tree.

	wardbook (root)
	├── data-layer
	│   ├── nats-server       (embedded, when configured)
	│   ├── localstore-gc
	│   └── backup-archiver   (when enabled)
	├── sync-layer
	│   ├── persistence       (orchestrator Start/Stop)
	│   ├── remote-subscription
	│   ├── websocket-hub
	│   └── event-relay
	└── api-layer
	    └── http-server

Failed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog into the zerolog pipeline. On shutdown each service
gets ShutdownTimeout to stop; main logs UnstoppedServiceReport for any that
did not.

The service wrappers live in the services subpackage.
*/
package supervisor
