// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

// Package logging provides the zerolog-based structured logger used across
// Wardbook.
//
// A process-wide logger is configured once at startup with Init and read
// through the package-level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("uid", logging.MaskID(uid)).Msg("session started")
//	logging.Error().Err(err).Int("records", n).Msg("push failed")
//
// Long-lived components take a zerolog.Logger by value (usually from
// WithComponent) so tests can capture their output with NewTestLogger.
//
// # Context
//
// ContextWithNewCorrelationID tags a context so every line logged through
// Ctx or FromContext for one persistence cycle, subscription or HTTP request
// shares a correlation_id field.
//
// # Adapters
//
// SlogHandler lets libraries that take *slog.Logger (the suture supervisor
// hook) write through zerolog. WatermillAdapter does the same for the event
// bus.
//
// # Patient data
//
// Record contents are never logged. Identifiers that are logged go through
// MaskID or MaskToken.
package logging
