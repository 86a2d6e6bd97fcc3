// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package localstore

// Key names one persisted slice.
type Key string

// The key names are stable; renaming one orphans existing data.
const (
	KeyRecords            Key = "wardbook.records"
	KeyTasks              Key = "wardbook.tasks"
	KeyBookmarks          Key = "wardbook.bookmarks"
	KeyBookmarkCategories Key = "wardbook.bookmarkCategories"
	KeyUser               Key = "wardbook.user"
	KeyTheme              Key = "wardbook.theme"
	KeyPatientTypes       Key = "wardbook.patientTypes"
	KeySecurity           Key = "wardbook.security"
	KeyPreferences        Key = "wardbook.preferences"
)

// AllKeys lists every key in a fixed order.
var AllKeys = []Key{
	KeyRecords,
	KeyTasks,
	KeyBookmarks,
	KeyBookmarkCategories,
	KeyUser,
	KeyTheme,
	KeyPatientTypes,
	KeySecurity,
	KeyPreferences,
}

func (k Key) String() string {
	return string(k)
}
