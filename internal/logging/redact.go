// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package logging

import "strings"

// Record contents are patient data and never reach the logs. Only ids,
// counts and timestamps do. The helpers below cover the identifiers that
// do get logged but should not appear in full.

// MaskID keeps the first and last four characters of an identifier.
//
//	MaskID("u-1234567890") == "u-12****7890"
func MaskID(id string) string {
	if len(id) <= 8 {
		return strings.Repeat("*", len(id))
	}
	return id[:4] + "****" + id[len(id)-4:]
}

// MaskToken keeps a short prefix of a bearer token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "[REDACTED]"
	}
	return token[:6] + "...[REDACTED]"
}

// TruncateString shortens s to at most n bytes.
func TruncateString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
