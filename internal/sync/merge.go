// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"sync"

	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/validation"
)

// ConflictFunc is told when an incoming copy of a record loses to the copy
// already in the merge result.
type ConflictFunc func(id string, kept, rejected models.Record)

// Merge overlays primary on legacy.
//
// A primary record replaces the legacy record with the same id when its
// UpdatedAt is greater than or equal to the legacy one. Otherwise the legacy
// record is kept and onConflict, if set, is called. Duplicate ids within
// one collection follow the same rule.
//
// The result lists legacy ids in legacy order followed by primary-only ids
// in primary order. The inputs are not modified.
func Merge(legacy, primary []models.Record, onConflict ConflictFunc) []models.Record {
	out := make([]models.Record, 0, len(legacy)+len(primary))
	pos := make(map[string]int, len(legacy)+len(primary))

	overlay := func(r models.Record) {
		i, ok := pos[r.ID]
		if !ok {
			pos[r.ID] = len(out)
			out = append(out, r)
			return
		}
		if r.UpdatedAt >= out[i].UpdatedAt {
			out[i] = r
			return
		}
		if onConflict != nil {
			onConflict(r.ID, out[i], r)
		}
	}

	for i := range legacy {
		overlay(legacy[i])
	}
	for i := range primary {
		overlay(primary[i])
	}
	return out
}

// Merger keeps the latest validated view of each collection and recomputes
// the merged set whenever one of them changes. It is safe for concurrent use,
// but Subscribe drives it from a single goroutine.
type Merger struct {
	normalizer *validation.Normalizer
	isDeleted  func(id string) bool
	onConflict ConflictFunc

	mu    sync.Mutex
	views map[Collection][]models.Record
}

// NewMerger creates a Merger. isDeleted and onConflict may be nil.
func NewMerger(normalizer *validation.Normalizer, isDeleted func(id string) bool, onConflict ConflictFunc) *Merger {
	if normalizer == nil {
		normalizer = validation.NewNormalizer()
	}
	return &Merger{
		normalizer: normalizer,
		isDeleted:  isDeleted,
		onConflict: onConflict,
		views:      make(map[Collection][]models.Record),
	}
}

// Apply replaces the view of snap.Collection and returns the new merged set.
func (m *Merger) Apply(snap Snapshot) []models.Record {
	records := m.normalizer.Records("remote:"+snap.Collection.String(), snap.Documents)
	return m.SetView(snap.Collection, records)
}

// SetView stores already validated records as the view of coll and returns
// the new merged set. Tombstoned ids are dropped from the incoming records
// and from the merged set, so a view stored before the tombstone cannot
// bring a deleted record back.
func (m *Merger) SetView(coll Collection, records []models.Record) []models.Record {
	kept := m.withoutDeleted(records)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[coll] = kept
	return m.withoutDeleted(Merge(m.views[CollectionLegacy], m.views[CollectionPrimary], m.onConflict))
}

func (m *Merger) withoutDeleted(records []models.Record) []models.Record {
	kept := records[:0:0]
	for i := range records {
		if m.isDeleted != nil && m.isDeleted(records[i].ID) {
			continue
		}
		kept = append(kept, records[i])
	}
	return kept
}

// View returns the stored view of coll.
func (m *Merger) View(coll Collection) []models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Record(nil), m.views[coll]...)
}
