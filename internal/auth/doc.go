// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package auth holds the session that tells the sync engine who is signed in.

A TokenManager issues and validates HS256 JWTs whose subject is the
physician's user id. A TokenSession keeps the validated claims of the current
token and implements the engine's Session interface:

	tokens, _ := auth.NewTokenManager(&cfg.Session)
	session := auth.NewTokenSession(tokens)
	session.OnSignOut(engine.ResetContentHash)
	session.OnSignOut(tracker.Reset)

	if _, err := session.SignIn(token); err != nil {
	    // remote stays disabled
	}

An expired token reads as signed out, which disables every remote operation
until the user signs in again. Sign-out hooks also run when a different user
signs in, so per-user sync state never carries over.

StaticSession is a fixed user id for tests and single-user deployments.
*/
package auth
