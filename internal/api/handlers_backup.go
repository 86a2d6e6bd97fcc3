// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/wardbook/internal/backup"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
)

// ExportBackup downloads the current state as a bundle.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	data, err := backup.Export(h.state.Current(), now)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "EXPORT_ERROR", "Export failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="wardbook-`+now.Format("2006-01-02")+`.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write export")
	}
}

// ImportBackup merges an uploaded bundle, or a bare array of records, into
// the current state. Invalid elements are skipped.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondBodyError(w, r, err)
		return
	}

	b, err := backup.Import(body, h.normalizer)
	if err != nil {
		if errors.Is(err, backup.ErrUnrecognized) {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Unrecognized backup format", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "IMPORT_ERROR", "Import failed", err)
		return
	}

	h.state.Observe(b.Apply(h.state.Current()))

	summary := models.ImportSummary{
		Records:            len(b.Records),
		Tasks:              len(b.Tasks),
		Bookmarks:          len(b.Bookmarks),
		BookmarkCategories: len(b.BookmarkCategories),
		PatientTypes:       len(b.PatientTypes),
	}
	logging.Ctx(r.Context()).Info().
		Int("records", summary.Records).
		Int("tasks", summary.Tasks).
		Msg("backup imported")
	respondOK(w, r, summary)
}
