// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"net/http"
)

// FullSync pushes the complete record set. Repeating it without local
// changes is a no-op.
func (h *Handler) FullSync(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session.UserID(); !ok {
		respondError(w, r, http.StatusConflict, "NOT_SIGNED_IN", "Sign in to sync", nil)
		return
	}
	if !h.engine.Available() {
		respondError(w, r, http.StatusServiceUnavailable, "REMOTE_UNAVAILABLE", "Remote store unavailable", nil)
		return
	}

	records := h.state.Current().Records
	if err := h.engine.PushAll(r.Context(), records); err != nil {
		respondError(w, r, http.StatusBadGateway, "REMOTE_ERROR", "Full sync failed", err)
		return
	}
	respondOK(w, r, map[string]int{"records": len(records)})
}
