// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package validation is the parse-or-reject gate for every payload entering
Wardbook.

Data arrives untyped from three places: the local store, remote snapshots
and imported backups. Normalizer decodes each element into its model type,
fills in defaults and runs the go-playground/validator tags declared on the
models. An element that fails is dropped on its own and never takes its
siblings with it:

	n := validation.NewNormalizer()
	records := n.Records("remote:records", raws) // invalid ones dropped, one warning logged

	rec, err := n.Record(raw)
	if errors.Is(err, validation.ErrInvalid) {
	    var verr *validation.RequestValidationError
	    errors.As(err, &verr)
	}

Defaults applied:
  - Task.priority: medium
  - createdAt on records, tasks, bookmarks and categories: the current time
  - Theme: system
  - Preferences and SecuritySettings: models.DefaultPreferences and
    models.DefaultSecuritySettings for missing fields

A missing Record.updatedAt is left at zero.

ValidateStruct and RequestValidationError are also used directly by the
HTTP API for request bodies.
*/
package validation
