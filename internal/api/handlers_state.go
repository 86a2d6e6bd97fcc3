// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/wardbook/internal/models"
)

// GetState returns the current app state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.state.Current())
}

// PutState replaces the app state. The body is normalized the same way as
// data loaded from disk: invalid elements are dropped, not rejected, and the
// response carries the state as stored.
func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondBodyError(w, r, err)
		return
	}

	st, err := h.normalizer.AppState("api:state", body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "State must be a JSON object", nil)
		return
	}

	h.state.Observe(st)
	respondOK(w, r, st)
}

// DeleteRecord removes a record locally and remotely. The local removal
// always happens; a remote failure is reported as 502 and the record stays
// hidden from snapshots until its tombstone expires.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Record id is required", nil)
		return
	}

	st := h.state.Current()
	kept := make([]models.Record, 0, len(st.Records))
	found := false
	for _, rec := range st.Records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}

	if err := h.engine.Delete(r.Context(), id); err != nil {
		if found {
			st.Records = kept
			h.state.Observe(st)
		}
		respondError(w, r, http.StatusBadGateway, "REMOTE_ERROR", "Record removed locally but the remote delete failed", err)
		return
	}

	if !found {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
		return
	}
	st.Records = kept
	h.state.Observe(st)
	respondOK(w, r, map[string]string{"id": id})
}
