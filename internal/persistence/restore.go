// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package persistence

import (
	"github.com/tomtom215/wardbook/internal/localstore"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/validation"
)

func localSource(key localstore.Key) string {
	return "local:" + key.String()
}

// Restore reads every slice from the local store through the normalizer.
// Missing or corrupt keys give their defaults; invalid entries are dropped.
func Restore(store *localstore.Store, n *validation.Normalizer) models.AppState {
	log := logging.WithComponent("persistence")

	st := models.AppState{
		Records:            n.Records(localSource(localstore.KeyRecords), store.LoadRaw(localstore.KeyRecords)),
		Tasks:              n.Tasks(localSource(localstore.KeyTasks), store.LoadRaw(localstore.KeyTasks)),
		Bookmarks:          n.Bookmarks(localSource(localstore.KeyBookmarks), store.LoadRaw(localstore.KeyBookmarks)),
		BookmarkCategories: n.BookmarkCategories(localSource(localstore.KeyBookmarkCategories), store.LoadRaw(localstore.KeyBookmarkCategories)),
		PatientTypes:       n.PatientTypes(localSource(localstore.KeyPatientTypes), store.LoadRaw(localstore.KeyPatientTypes)),
		Theme:              models.ThemeSystem,
		Security:           models.DefaultSecuritySettings(),
		Preferences:        models.DefaultPreferences(),
	}

	if raw, ok := store.LoadValueRaw(localstore.KeyUser); ok {
		if u, err := n.User(raw); err == nil {
			st.User = &u
		} else {
			log.Warn().Err(err).Str("key", localstore.KeyUser.String()).Msg("discarding stored user")
		}
	}
	if raw, ok := store.LoadValueRaw(localstore.KeyTheme); ok {
		theme, err := n.Theme(raw)
		if err != nil {
			log.Warn().Err(err).Str("key", localstore.KeyTheme.String()).Msg("discarding stored theme")
		}
		st.Theme = theme
	}
	if raw, ok := store.LoadValueRaw(localstore.KeySecurity); ok {
		sec, err := n.Security(raw)
		if err != nil {
			log.Warn().Err(err).Str("key", localstore.KeySecurity.String()).Msg("discarding stored security settings")
		}
		st.Security = sec
	}
	if raw, ok := store.LoadValueRaw(localstore.KeyPreferences); ok {
		prefs, err := n.Preferences(raw)
		if err != nil {
			log.Warn().Err(err).Str("key", localstore.KeyPreferences.String()).Msg("discarding stored preferences")
		}
		st.Preferences = prefs
	}

	log.Info().
		Int("records", len(st.Records)).
		Int("tasks", len(st.Tasks)).
		Int("bookmarks", len(st.Bookmarks)).
		Bool("user", st.User != nil).
		Msg("local state restored")
	return st
}
