// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package validation

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	"github.com/tomtom215/wardbook/internal/models"
)

// Normalizer turns untyped payloads into typed models. It is the only way
// data from local storage, the remote store or a backup enters the app.
//
// Single-value methods return the normalized value or an error wrapping
// ErrInvalid. Batch methods validate each element independently, drop the
// invalid ones and log one warning per batch.
type Normalizer struct {
	now    func() time.Time
	logger zerolog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithClock sets the time source used for missing createdAt values.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLogger sets the logger used for batch drop warnings.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// NewNormalizer creates a Normalizer using time.Now and the global logger.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		now:    time.Now,
		logger: logging.WithComponent("validation"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) nowMillis() models.Millis {
	return models.MillisFrom(n.now())
}

// decode unmarshals raw into dst, reporting type mismatches as validation
// failures. Unknown fields are ignored.
func decode(kind string, raw json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, kind, typeError(kind, kind+" must be a JSON object"))
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, kind, typeError(kind, err.Error()))
	}
	return nil
}

func check(kind string, v interface{}) error {
	if verr := ValidateStruct(v); verr != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, kind, verr)
	}
	return nil
}

// Record normalizes one record. A missing createdAt becomes now. A missing
// updatedAt stays zero.
func (n *Normalizer) Record(raw json.RawMessage) (models.Record, error) {
	var r models.Record
	if err := decode("record", raw, &r); err != nil {
		return models.Record{}, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = n.nowMillis()
	}
	if r.Tasks == nil {
		r.Tasks = []models.SubTask{}
	}
	if r.Attachments == nil {
		r.Attachments = []models.Attachment{}
	}
	if err := check("record", &r); err != nil {
		return models.Record{}, err
	}
	return r, nil
}

// Task normalizes one task. Priority defaults to medium.
func (n *Normalizer) Task(raw json.RawMessage) (models.Task, error) {
	var t models.Task
	if err := decode("task", raw, &t); err != nil {
		return models.Task{}, err
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = n.nowMillis()
	}
	if err := check("task", &t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Bookmark normalizes one bookmark.
func (n *Normalizer) Bookmark(raw json.RawMessage) (models.Bookmark, error) {
	var b models.Bookmark
	if err := decode("bookmark", raw, &b); err != nil {
		return models.Bookmark{}, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = n.nowMillis()
	}
	if err := check("bookmark", &b); err != nil {
		return models.Bookmark{}, err
	}
	return b, nil
}

// BookmarkCategory normalizes one bookmark category.
func (n *Normalizer) BookmarkCategory(raw json.RawMessage) (models.BookmarkCategory, error) {
	var c models.BookmarkCategory
	if err := decode("bookmark category", raw, &c); err != nil {
		return models.BookmarkCategory{}, err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = n.nowMillis()
	}
	if err := check("bookmark category", &c); err != nil {
		return models.BookmarkCategory{}, err
	}
	return c, nil
}

// PatientType normalizes one patient type.
func (n *Normalizer) PatientType(raw json.RawMessage) (models.PatientType, error) {
	var p models.PatientType
	if err := decode("patient type", raw, &p); err != nil {
		return models.PatientType{}, err
	}
	if err := check("patient type", &p); err != nil {
		return models.PatientType{}, err
	}
	return p, nil
}

// User normalizes the user profile.
func (n *Normalizer) User(raw json.RawMessage) (models.User, error) {
	var u models.User
	if err := decode("user", raw, &u); err != nil {
		return models.User{}, err
	}
	if err := check("user", &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Preferences normalizes preferences. Missing or empty fields take the
// values from models.DefaultPreferences.
func (n *Normalizer) Preferences(raw json.RawMessage) (models.Preferences, error) {
	defaults := models.DefaultPreferences()
	p := defaults
	if err := decode("preferences", raw, &p); err != nil {
		return defaults, err
	}
	if p.Language == "" {
		p.Language = defaults.Language
	}
	if p.DefaultView == "" {
		p.DefaultView = defaults.DefaultView
	}
	if err := check("preferences", &p); err != nil {
		return defaults, err
	}
	return p, nil
}

// Security normalizes the lock settings, starting from
// models.DefaultSecuritySettings.
func (n *Normalizer) Security(raw json.RawMessage) (models.SecuritySettings, error) {
	defaults := models.DefaultSecuritySettings()
	s := defaults
	if err := decode("security", raw, &s); err != nil {
		return defaults, err
	}
	if err := check("security", &s); err != nil {
		return defaults, err
	}
	return s, nil
}

// Theme normalizes the theme. Null, an empty string or a missing value give
// models.ThemeSystem. On error the returned theme is also ThemeSystem.
func (n *Normalizer) Theme(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.ThemeSystem, nil
	}
	var theme string
	if err := json.Unmarshal(trimmed, &theme); err != nil {
		return models.ThemeSystem, fmt.Errorf("%w: theme: %w", ErrInvalid, typeError("theme", "theme must be a string"))
	}
	switch theme {
	case "":
		return models.ThemeSystem, nil
	case models.ThemeLight, models.ThemeDark, models.ThemeSystem:
		return theme, nil
	default:
		return models.ThemeSystem, fmt.Errorf("%w: theme: %w", ErrInvalid,
			typeError("theme", "theme must be one of: light dark system"))
	}
}

// Records normalizes a batch of records from source.
func (n *Normalizer) Records(source string, raws []json.RawMessage) []models.Record {
	return normalizeBatch(n, source, "record", raws, n.Record)
}

// Tasks normalizes a batch of tasks from source.
func (n *Normalizer) Tasks(source string, raws []json.RawMessage) []models.Task {
	return normalizeBatch(n, source, "task", raws, n.Task)
}

// Bookmarks normalizes a batch of bookmarks from source.
func (n *Normalizer) Bookmarks(source string, raws []json.RawMessage) []models.Bookmark {
	return normalizeBatch(n, source, "bookmark", raws, n.Bookmark)
}

// BookmarkCategories normalizes a batch of bookmark categories from source.
func (n *Normalizer) BookmarkCategories(source string, raws []json.RawMessage) []models.BookmarkCategory {
	return normalizeBatch(n, source, "bookmark category", raws, n.BookmarkCategory)
}

// PatientTypes normalizes a batch of patient types from source.
func (n *Normalizer) PatientTypes(source string, raws []json.RawMessage) []models.PatientType {
	return normalizeBatch(n, source, "patient type", raws, n.PatientType)
}

// normalizeBatch keeps every element that passes one and logs the drop count
// once. The result is never nil.
func normalizeBatch[T any](n *Normalizer, source, kind string, raws []json.RawMessage, one func(json.RawMessage) (T, error)) []T {
	out := make([]T, 0, len(raws))
	var firstErr error
	for _, raw := range raws {
		v, err := one(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, v)
	}

	if dropped := len(raws) - len(out); dropped > 0 {
		metrics.RecordValidationDrops(source, dropped)
		n.logger.Warn().
			Str("source", source).
			Str("kind", kind).
			Int("dropped", dropped).
			Int("total", len(raws)).
			AnErr("first_error", firstErr).
			Msg("dropped invalid entries")
	}
	return out
}

// appStateFields mirrors models.AppState with every field left raw.
type appStateFields struct {
	Records            json.RawMessage `json:"records"`
	Tasks              json.RawMessage `json:"tasks"`
	Bookmarks          json.RawMessage `json:"bookmarks"`
	BookmarkCategories json.RawMessage `json:"bookmarkCategories"`
	User               json.RawMessage `json:"user"`
	Theme              json.RawMessage `json:"theme"`
	PatientTypes       json.RawMessage `json:"patientTypes"`
	Security           json.RawMessage `json:"security"`
	Preferences        json.RawMessage `json:"preferences"`
}

// AppState normalizes a complete app state document. Only a payload that is
// not a JSON object is an error. Collections are normalized element by
// element, an invalid user becomes nil and the remaining settings fall back
// to their defaults.
func (n *Normalizer) AppState(source string, raw json.RawMessage) (models.AppState, error) {
	var f appStateFields
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.AppState{}, fmt.Errorf("%w: app state: %w", ErrInvalid, typeError("state", "state must be an object"))
	}
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return models.AppState{}, fmt.Errorf("%w: app state: %w", ErrInvalid, err)
	}

	st := models.AppState{
		Records:            n.Records(source+":records", rawElements(f.Records)),
		Tasks:              n.Tasks(source+":tasks", rawElements(f.Tasks)),
		Bookmarks:          n.Bookmarks(source+":bookmarks", rawElements(f.Bookmarks)),
		BookmarkCategories: n.BookmarkCategories(source+":bookmarkCategories", rawElements(f.BookmarkCategories)),
		PatientTypes:       n.PatientTypes(source+":patientTypes", rawElements(f.PatientTypes)),
	}
	st.Theme, _ = n.Theme(f.Theme)
	st.Security, _ = n.Security(f.Security)
	st.Preferences, _ = n.Preferences(f.Preferences)

	if u := bytes.TrimSpace(f.User); len(u) > 0 && !bytes.Equal(u, []byte("null")) {
		if user, err := n.User(u); err == nil {
			st.User = &user
		} else {
			n.logger.Warn().Str("source", source).Err(err).Msg("dropped invalid user")
		}
	}
	return st, nil
}

// rawElements splits a JSON array. Anything else yields no elements.
func rawElements(raw json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []json.RawMessage{}
	}
	return out
}
