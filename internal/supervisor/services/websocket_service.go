// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package services

import (
	"context"
)

// ContextHub matches *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the hub under supervision.
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService wraps hub.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

func (w *WebSocketHubService) String() string {
	return w.name
}

// EventRelay matches *websocket.Relay.
type EventRelay interface {
	Serve(ctx context.Context) error
}

// RelayService runs the bus-to-hub relay. A relay whose subscription ends
// returns an error and is restarted.
type RelayService struct {
	relay EventRelay
	name  string
}

// NewRelayService wraps relay.
func NewRelayService(relay EventRelay) *RelayService {
	return &RelayService{
		relay: relay,
		name:  "event-relay",
	}
}

// Serve implements suture.Service.
func (r *RelayService) Serve(ctx context.Context) error {
	return r.relay.Serve(ctx)
}

func (r *RelayService) String() string {
	return r.name
}
