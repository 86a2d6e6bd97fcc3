// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package models

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Theme values.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Task is a pending to-do on the physician's list, optionally tied to a record.
type Task struct {
	ID        string  `json:"id" validate:"required,max=128"`
	Text      string  `json:"text" validate:"required,max=2048"`
	RecordID  *string `json:"recordId"`
	Priority  string  `json:"priority" validate:"oneof=low medium high"`
	Completed bool    `json:"completed"`
	DueAt     *Millis `json:"dueAt"`
	CreatedAt Millis  `json:"createdAt"`
}

// Bookmark is a saved reference link.
type Bookmark struct {
	ID         string  `json:"id" validate:"required,max=128"`
	Title      string  `json:"title" validate:"required,max=512"`
	URL        string  `json:"url" validate:"required,url"`
	CategoryID *string `json:"categoryId"`
	CreatedAt  Millis  `json:"createdAt"`
}

// BookmarkCategory groups bookmarks.
type BookmarkCategory struct {
	ID        string  `json:"id" validate:"required,max=128"`
	Name      string  `json:"name" validate:"required,max=256"`
	Color     *string `json:"color" validate:"omitempty,hexcolor"`
	CreatedAt Millis  `json:"createdAt"`
}

// PatientType is an entry of the user-editable patient type catalog.
type PatientType struct {
	ID    string  `json:"id" validate:"required,max=128"`
	Name  string  `json:"name" validate:"required,max=256"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

// User is the signed-in physician's profile.
type User struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Specialty *string `json:"specialty"`
}

// SecuritySettings controls the local screen lock.
type SecuritySettings struct {
	PINEnabled      bool    `json:"pinEnabled"`
	PINHash         *string `json:"pinHash"`
	AutoLockMinutes int     `json:"autoLockMinutes" validate:"gte=0,lte=1440"`
}

// Preferences holds UI preferences that never leave the device.
type Preferences struct {
	Language    string `json:"language" validate:"omitempty,bcp47_language_tag"`
	DefaultView string `json:"defaultView" validate:"omitempty,oneof=daily list calendar"`
	CompactMode bool   `json:"compactMode"`
	AutoBackup  bool   `json:"autoBackup"`
}

// DefaultPreferences returns the preferences applied to a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:    "en",
		DefaultView: "daily",
	}
}

// DefaultSecuritySettings returns the lock settings applied to a fresh install.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{AutoLockMinutes: 15}
}

// AppState is the complete set of slices the application persists.
type AppState struct {
	Records            []Record           `json:"records"`
	Tasks              []Task             `json:"tasks"`
	Bookmarks          []Bookmark         `json:"bookmarks"`
	BookmarkCategories []BookmarkCategory `json:"bookmarkCategories"`
	User               *User              `json:"user"`
	Theme              string             `json:"theme"`
	PatientTypes       []PatientType      `json:"patientTypes"`
	Security           SecuritySettings   `json:"security"`
	Preferences        Preferences        `json:"preferences"`
}
