// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package backup

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/validation"
)

// BundleVersion is written to every exported bundle.
const BundleVersion = 1

// ErrUnrecognized is returned by Import when the blob is neither a JSON object
// nor a JSON array.
var ErrUnrecognized = errors.New("backup: unrecognized bundle format")

// Bundle is the portable export of a physician's data. User profile and lock
// settings are device-bound and never exported.
type Bundle struct {
	Version            int                       `json:"version"`
	ExportedAt         time.Time                 `json:"exportedAt"`
	Records            []models.Record           `json:"records"`
	Tasks              []models.Task             `json:"tasks"`
	Bookmarks          []models.Bookmark         `json:"bookmarks"`
	BookmarkCategories []models.BookmarkCategory `json:"bookmarkCategories"`
	PatientTypes       []models.PatientType      `json:"patientTypes"`
	Preferences        *models.Preferences       `json:"preferences,omitempty"`
	Theme              string                    `json:"theme,omitempty"`
}

// NewBundle captures the exportable part of st.
func NewBundle(st models.AppState, at time.Time) Bundle {
	prefs := st.Preferences
	return Bundle{
		Version:            BundleVersion,
		ExportedAt:         at.UTC(),
		Records:            orEmpty(st.Records),
		Tasks:              orEmpty(st.Tasks),
		Bookmarks:          orEmpty(st.Bookmarks),
		BookmarkCategories: orEmpty(st.BookmarkCategories),
		PatientTypes:       orEmpty(st.PatientTypes),
		Preferences:        &prefs,
		Theme:              st.Theme,
	}
}

// Export encodes the exportable part of st as bundle JSON.
func Export(st models.AppState, at time.Time) ([]byte, error) {
	data, err := json.Marshal(NewBundle(st, at))
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// bundleFields lists the keys Import understands. "patients" is the key used
// by exports from older clients.
type bundleFields struct {
	Version            int             `json:"version"`
	ExportedAt         json.RawMessage `json:"exportedAt"`
	Records            json.RawMessage `json:"records"`
	Patients           json.RawMessage `json:"patients"`
	Tasks              json.RawMessage `json:"tasks"`
	Bookmarks          json.RawMessage `json:"bookmarks"`
	BookmarkCategories json.RawMessage `json:"bookmarkCategories"`
	PatientTypes       json.RawMessage `json:"patientTypes"`
	Preferences        json.RawMessage `json:"preferences"`
	Theme              json.RawMessage `json:"theme"`
}

// Import decodes an arbitrary JSON blob into a normalized Bundle. The blob may
// be a full bundle or a bare array of records. Every element is validated on
// its own and invalid ones are dropped, so a partly damaged export still
// restores everything that survives validation.
func Import(blob []byte, n *validation.Normalizer) (Bundle, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 {
		return Bundle{}, ErrUnrecognized
	}

	b := Bundle{Version: BundleVersion}
	switch trimmed[0] {
	case '[':
		b.Records = n.Records("import:records", elements(trimmed))
		b.Tasks = []models.Task{}
		b.Bookmarks = []models.Bookmark{}
		b.BookmarkCategories = []models.BookmarkCategory{}
		b.PatientTypes = []models.PatientType{}
		return b, nil

	case '{':
		var f bundleFields
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return Bundle{}, fmt.Errorf("%w: %w", ErrUnrecognized, err)
		}
		if f.Version > 0 {
			b.Version = f.Version
		}
		var at time.Time
		if err := json.Unmarshal(f.ExportedAt, &at); err == nil {
			b.ExportedAt = at.UTC()
		}

		records := f.Records
		if len(bytes.TrimSpace(records)) == 0 {
			records = f.Patients
		}
		b.Records = n.Records("import:records", elements(records))
		b.Tasks = n.Tasks("import:tasks", elements(f.Tasks))
		b.Bookmarks = n.Bookmarks("import:bookmarks", elements(f.Bookmarks))
		b.BookmarkCategories = n.BookmarkCategories("import:bookmarkCategories", elements(f.BookmarkCategories))
		b.PatientTypes = n.PatientTypes("import:patientTypes", elements(f.PatientTypes))

		if len(f.Preferences) > 0 {
			if prefs, err := n.Preferences(f.Preferences); err == nil {
				b.Preferences = &prefs
			}
		}
		if len(f.Theme) > 0 {
			if theme, err := n.Theme(f.Theme); err == nil {
				b.Theme = theme
			}
		}
		return b, nil

	default:
		return Bundle{}, ErrUnrecognized
	}
}

// elements splits a JSON array into its raw elements. Anything that is not an
// array yields nothing.
func elements(raw json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return []json.RawMessage{}
	}
	if out == nil {
		return []json.RawMessage{}
	}
	return out
}

// Apply merges the bundle into st and returns the result.
//
// Records are reconciled by updatedAt the same way sync does: an imported
// record replaces the local copy only when it is at least as new. Other
// entities are replaced by id. Preferences and theme are taken from the
// bundle when present.
func (b Bundle) Apply(st models.AppState) models.AppState {
	st.Records = upsert(st.Records, b.Records, func(r models.Record) string { return r.ID },
		func(cur, in models.Record) bool { return in.UpdatedAt >= cur.UpdatedAt })
	st.Tasks = upsert(st.Tasks, b.Tasks, func(t models.Task) string { return t.ID }, always[models.Task])
	st.Bookmarks = upsert(st.Bookmarks, b.Bookmarks, func(m models.Bookmark) string { return m.ID }, always[models.Bookmark])
	st.BookmarkCategories = upsert(st.BookmarkCategories, b.BookmarkCategories,
		func(c models.BookmarkCategory) string { return c.ID }, always[models.BookmarkCategory])
	st.PatientTypes = upsert(st.PatientTypes, b.PatientTypes,
		func(p models.PatientType) string { return p.ID }, always[models.PatientType])

	if b.Preferences != nil {
		st.Preferences = *b.Preferences
	}
	if b.Theme != "" {
		st.Theme = b.Theme
	}
	return st
}

func always[T any](_, _ T) bool { return true }

// upsert keeps the order of cur, replaces entries that replace approves and
// appends new ids in the order they were imported.
func upsert[T any](cur, incoming []T, id func(T) string, replace func(cur, in T) bool) []T {
	out := make([]T, 0, len(cur)+len(incoming))
	out = append(out, cur...)

	index := make(map[string]int, len(out))
	for i, v := range out {
		index[id(v)] = i
	}
	for _, v := range incoming {
		if i, ok := index[id(v)]; ok {
			if replace(out[i], v) {
				out[i] = v
			}
			continue
		}
		index[id(v)] = len(out)
		out = append(out, v)
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
