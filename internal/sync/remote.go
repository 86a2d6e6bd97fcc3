// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"context"

	"github.com/goccy/go-json"
)

// Collection names a remote document collection.
type Collection string

const (
	// CollectionPrimary receives every write.
	CollectionPrimary Collection = "records"

	// CollectionLegacy holds documents written by older clients. It is only
	// read, apart from best-effort deletes.
	CollectionLegacy Collection = "patients"
)

func (c Collection) String() string {
	return string(c)
}

// Session reports the signed-in user.
type Session interface {
	// UserID returns the current user id, or false when signed out.
	UserID() (string, bool)
}

// Document is one record as stored remotely, keyed by record id.
type Document struct {
	ID   string
	Body json.RawMessage
}

// Snapshot is the complete content of one collection at a point in time.
type Snapshot struct {
	Collection Collection
	Documents  []json.RawMessage
}

// DocumentStore is the remote document database, partitioned per user and
// collection.
type DocumentStore interface {
	// Commit writes docs as one batch. Each document overwrites any existing
	// document with the same id.
	Commit(ctx context.Context, uid string, coll Collection, docs []Document) error

	// Set writes a single document.
	Set(ctx context.Context, uid string, coll Collection, doc Document) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, uid string, coll Collection, id string) error

	// Watch streams a full snapshot of the collection, first on start and
	// then after every change. The channel is closed when ctx is done or the
	// watch fails.
	Watch(ctx context.Context, uid string, coll Collection) (<-chan Snapshot, error)
}
