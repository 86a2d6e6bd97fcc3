// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"sync"

	"github.com/tomtom215/wardbook/internal/models"
)

// Tracker records the UpdatedAt last pushed for each record id.
type Tracker struct {
	mu     sync.Mutex
	synced map[string]models.Millis
}

// NewTracker returns an empty tracker. Every record starts out dirty.
func NewTracker() *Tracker {
	return &Tracker{synced: make(map[string]models.Millis)}
}

// IsDirty reports whether a record at updatedAt still needs pushing.
func (t *Tracker) IsDirty(id string, updatedAt models.Millis) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isDirtyLocked(id, updatedAt)
}

func (t *Tracker) isDirtyLocked(id string, updatedAt models.Millis) bool {
	synced, ok := t.synced[id]
	return !ok || updatedAt > synced
}

// MarkSynced records that id was pushed at updatedAt. The value is stored
// as given, even when it is lower than the one already tracked: overlapping
// pushes may confirm out of order and the tracker follows the last
// confirmation.
func (t *Tracker) MarkSynced(id string, updatedAt models.Millis) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.synced[id] = updatedAt
}

// MarkAllSynced calls MarkSynced for every record.
func (t *Tracker) MarkAllSynced(records []models.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range records {
		t.synced[records[i].ID] = records[i].UpdatedAt
	}
}

// Dirty returns the records that need pushing, in input order.
func (t *Tracker) Dirty(records []models.Record) []models.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var dirty []models.Record
	for i := range records {
		if t.isDirtyLocked(records[i].ID, records[i].UpdatedAt) {
			dirty = append(dirty, records[i])
		}
	}
	return dirty
}

// Forget drops id, making its next appearance dirty.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.synced, id)
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.synced)
}

// Reset forgets everything, for example on sign-out.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.synced = make(map[string]models.Millis)
}
