// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/models"
)

// The remote store rejects documents with missing keys. Record has no
// omitempty tags, so unset pointers already encode as null; what is left to
// normalize is nil slices, which must be written as empty arrays.
func sanitizeRecord(r models.Record) models.Record {
	out := r.Clone()
	if out.Tasks == nil {
		out.Tasks = []models.SubTask{}
	}
	if out.Attachments == nil {
		out.Attachments = []models.Attachment{}
	}
	return out
}

// encodeDocument stamps r with meta and serializes it for the remote store.
func encodeDocument(r models.Record, meta models.SyncMeta) (Document, error) {
	clean := sanitizeRecord(r)
	clean.SyncMeta = &meta
	body, err := json.Marshal(clean)
	if err != nil {
		return Document{}, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return Document{ID: r.ID, Body: body}, nil
}
