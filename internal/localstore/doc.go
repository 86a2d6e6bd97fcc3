// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package localstore persists application slices on the device.

Each slice lives under one fixed Key as a JSON document. Keys are written
independently; there are no cross-key transactions. Reads never fail: a
missing or corrupt value reads as empty and corruption is logged at warn.
Writes never return errors either; Save and SaveValue report success as a
bool and log the reason for a failure (serialization, quota, backend).

	store := localstore.New(kv)
	ok := localstore.Save(store, localstore.KeyTasks, tasks)
	tasks := localstore.Load[models.Task](store, localstore.KeyTasks)

Untrusted slices are read with LoadRaw and passed through the
validation.Normalizer instead of Load.

Two KV backends are provided: BadgerKV (dgraph-io/badger, on disk or in
memory) and MemoryKV (a map).
*/
package localstore
