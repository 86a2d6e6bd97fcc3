// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package persistence

import (
	"time"

	"github.com/tomtom215/wardbook/internal/events"
)

// Status is the persistence state shown to the user.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSynced Status = "synced"
	StatusError  Status = "error"
)

// State is a point-in-time view of the orchestrator.
type State struct {
	Status Status `json:"status"`

	// Error is the last push failure, set only in StatusError.
	Error string `json:"error,omitempty"`

	// SyncedAt is when the last push succeeded, or when the last cycle found
	// nothing to push while the remote was available.
	SyncedAt time.Time `json:"syncedAt"`

	// Pushed is the number of records pushed by the last cycle.
	Pushed int `json:"pushed"`
}

func (s State) event(at time.Time) events.StatusEvent {
	ev := events.StatusEvent{
		Status: string(s.Status),
		Error:  s.Error,
		Pushed: s.Pushed,
		At:     at,
	}
	if !s.SyncedAt.IsZero() {
		syncedAt := s.SyncedAt
		ev.SyncedAt = &syncedAt
	}
	return ev
}
