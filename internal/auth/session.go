// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package auth

import (
	"sync"
	"time"

	"github.com/tomtom215/wardbook/internal/logging"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// Ensure sessions implement the engine's Session
var (
	_ recsync.Session = (*TokenSession)(nil)
	_ recsync.Session = StaticSession("")
)

// TokenSession is the signed-in state of this device.
type TokenSession struct {
	tokens *TokenManager

	mu        sync.RWMutex
	claims    *Claims
	onSignIn  []func(uid string)
	onSignOut []func()
}

// NewTokenSession returns a signed-out session.
func NewTokenSession(tokens *TokenManager) *TokenSession {
	return &TokenSession{tokens: tokens}
}

// SignIn validates token and makes its subject the current user.
func (s *TokenSession) SignIn(token string) (*Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	previous := s.claims
	s.claims = claims
	s.mu.Unlock()

	changed := previous == nil || previous.Subject != claims.Subject
	if previous != nil && changed {
		s.notifySignOut()
	}
	if changed {
		s.notifySignIn(claims.Subject)
	}
	logging.Info().Str("uid", logging.MaskID(claims.Subject)).Msg("signed in")
	return claims, nil
}

// SignOut clears the current user and runs the sign-out hooks.
func (s *TokenSession) SignOut() {
	s.mu.Lock()
	was := s.claims
	s.claims = nil
	s.mu.Unlock()

	if was == nil {
		return
	}
	s.notifySignOut()
	logging.Info().Str("uid", logging.MaskID(was.Subject)).Msg("signed out")
}

// OnSignOut registers fn to run after the user signs out or a different
// user signs in.
func (s *TokenSession) OnSignOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fn)
}

// OnSignIn registers fn to run when a user signs in. Refreshing the token of
// the current user does not run it.
func (s *TokenSession) OnSignIn(fn func(uid string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignIn = append(s.onSignIn, fn)
}

func (s *TokenSession) notifySignIn(uid string) {
	s.mu.RLock()
	hooks := append([]func(string){}, s.onSignIn...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(uid)
	}
}

func (s *TokenSession) notifySignOut() {
	s.mu.RLock()
	hooks := append([]func(){}, s.onSignOut...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// UserID returns the signed-in user. An expired token reads as signed out.
func (s *TokenSession) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return "", false
	}
	if exp := s.claims.ExpiresAt; exp != nil && !s.tokens.now().Before(exp.Time) {
		return "", false
	}
	return s.claims.Subject, true
}

// Claims returns the current claims, or nil when signed out.
func (s *TokenSession) Claims() *Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// ExpiresAt returns the token expiry, or the zero time when signed out.
func (s *TokenSession) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt.Time
}

// StaticSession is a fixed user id. The empty string is signed out.
type StaticSession string

// UserID implements sync.Session.
func (s StaticSession) UserID() (string, bool) {
	return string(s), s != ""
}
