// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package models

import "time"

// APIResponse is the envelope for every JSON API response.
//
// Success:
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
//
// Error:
//
//	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "VALIDATION_ERROR", "message": "..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error code plus a human-readable message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status          string  `json:"status"` // healthy, degraded
	Version         string  `json:"version"`
	SignedIn        bool    `json:"signed_in"`
	RemoteAvailable bool    `json:"remote_available"`
	WSClients       int     `json:"ws_clients"`
	Uptime          float64 `json:"uptime"`
}

// SessionInfo describes the signed-in physician.
type SessionInfo struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImportSummary reports what a backup import added to the app state.
type ImportSummary struct {
	Records            int `json:"records"`
	Tasks              int `json:"tasks"`
	Bookmarks          int `json:"bookmarks"`
	BookmarkCategories int `json:"bookmark_categories"`
	PatientTypes       int `json:"patient_types"`
}
