// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package backup exports, imports and archives a physician's data.

# Bundles

Export writes the exportable part of the app state as one JSON document:

	{
	  "version": 1,
	  "exportedAt": "2026-10-16T10:15:00Z",
	  "records": [...],
	  "tasks": [...],
	  "bookmarks": [...],
	  "bookmarkCategories": [...],
	  "patientTypes": [...],
	  "preferences": {...},
	  "theme": "dark"
	}

Import accepts that document, an older export that calls records "patients",
or a bare array of records. Every element goes through the Normalizer on its
own, so a damaged file restores whatever is still valid. Bundle.Apply merges
an imported bundle into the current state; records follow the same
newer-wins rule as sync.

# Archives

Archiver writes a gzip-compressed bundle and a sha256sum-compatible checksum
file on a schedule, keeps the newest N archives and optionally hands each one
to an Uploader. Open verifies the checksum before decoding.
*/
package backup
