// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package events

import (
	"time"

	"github.com/tomtom215/wardbook/internal/models"
)

// Topics
const (
	TopicStatus = "sync.status"
	TopicMerged = "records.merged"
)

// StatusEvent announces a persistence status transition.
type StatusEvent struct {
	Status   string     `json:"status"`
	Error    string     `json:"error,omitempty"`
	SyncedAt *time.Time `json:"syncedAt,omitempty"`
	Pushed   int        `json:"pushed"`
	At       time.Time  `json:"at"`
}

// MergedEvent carries the merged record set produced by a subscription.
type MergedEvent struct {
	Records []models.Record `json:"records"`
	At      time.Time       `json:"at"`
}
