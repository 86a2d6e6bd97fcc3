// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/wardbook/internal/auth"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/persistence"
	"github.com/tomtom215/wardbook/internal/validation"
	ws "github.com/tomtom215/wardbook/internal/websocket"
)

// StateStore is the persistence side the API reads and writes app state
// through.
type StateStore interface {
	Current() models.AppState
	Observe(st models.AppState)
	Status() persistence.State
	Flush(ctx context.Context) error
}

// SyncEngine is the remote side of the API.
type SyncEngine interface {
	Available() bool
	PushAll(ctx context.Context, records []models.Record) error
	Delete(ctx context.Context, id string) error
}

// SessionManager signs the physician in and out.
type SessionManager interface {
	SignIn(token string) (*auth.Claims, error)
	SignOut()
	UserID() (string, bool)
	Claims() *auth.Claims
}

// Handler serves the HTTP API.
type Handler struct {
	state      StateStore
	engine     SyncEngine
	session    SessionManager
	normalizer *validation.Normalizer
	hub        *ws.Hub

	corsOrigins []string
	version     string
	startTime   time.Time
	now         func() time.Time
}

// HandlerDeps collects the Handler's collaborators. Hub may be nil, in which
// case the WebSocket endpoint answers 503.
type HandlerDeps struct {
	State       StateStore
	Engine      SyncEngine
	Session     SessionManager
	Normalizer  *validation.Normalizer
	Hub         *ws.Hub
	CORSOrigins []string
	Version     string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	n := deps.Normalizer
	if n == nil {
		n = validation.NewNormalizer()
	}
	return &Handler{
		state:       deps.State,
		engine:      deps.Engine,
		session:     deps.Session,
		normalizer:  n,
		hub:         deps.Hub,
		corsOrigins: deps.CORSOrigins,
		version:     version,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// getUpgrader returns a WebSocket upgrader that checks the Origin header.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts only configured origins. Browsers always send
// Origin on WebSocket handshakes, so a missing header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and registers it with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()

	// A new client has missed every earlier event; send it the current status.
	h.hub.BroadcastStatus(statusEvent(h.state.Status(), h.now()))
}
