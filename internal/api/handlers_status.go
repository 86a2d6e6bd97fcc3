// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/wardbook/internal/events"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/persistence"
)

// Health reports liveness plus whether the remote is reachable. The service
// is "degraded" while signed in with the remote unavailable; it still serves
// and persists locally.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	_, signedIn := h.session.UserID()
	available := h.engine.Available()

	status := "healthy"
	if signedIn && !available {
		status = "degraded"
	}

	clients := 0
	if h.hub != nil {
		clients = h.hub.GetClientCount()
	}

	respondOK(w, r, models.HealthStatus{
		Status:          status,
		Version:         h.version,
		SignedIn:        signedIn,
		RemoteAvailable: available,
		WSClients:       clients,
		Uptime:          time.Since(h.startTime).Seconds(),
	})
}

// Status returns the persistence status shown in the UI.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, statusEvent(h.state.Status(), h.now()))
}

func statusEvent(st persistence.State, at time.Time) events.StatusEvent {
	ev := events.StatusEvent{
		Status: string(st.Status),
		Error:  st.Error,
		Pushed: st.Pushed,
		At:     at,
	}
	if !st.SyncedAt.IsZero() {
		syncedAt := st.SyncedAt
		ev.SyncedAt = &syncedAt
	}
	return ev
}
