// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

// Package services adapts Wardbook components to suture.Service.
//
// Each wrapper depends on a small interface rather than the component's
// package, so the wrappers can be tested with fakes. Every Serve returns
// ctx.Err() on a normal shutdown and a wrapped error when the component
// fails, which makes suture restart it.
package services
