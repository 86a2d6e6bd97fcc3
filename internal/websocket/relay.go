// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package websocket

import (
	"context"
	"fmt"

	"github.com/tomtom215/wardbook/internal/events"
)

// EventSource is the subscribing side of the event bus.
type EventSource interface {
	SubscribeStatus(ctx context.Context) (<-chan events.StatusEvent, error)
	SubscribeMerged(ctx context.Context) (<-chan events.MergedEvent, error)
}

// Relay forwards bus events to the hub.
type Relay struct {
	source EventSource
	hub    *Hub
}

// NewRelay creates a relay from source to hub.
func NewRelay(source EventSource, hub *Hub) *Relay {
	return &Relay{source: source, hub: hub}
}

// Serve forwards events until ctx is done or a subscription ends.
func (r *Relay) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	statuses, err := r.source.SubscribeStatus(ctx)
	if err != nil {
		return fmt.Errorf("relay status events: %w", err)
	}
	merged, err := r.source.SubscribeMerged(ctx)
	if err != nil {
		return fmt.Errorf("relay merge events: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-statuses:
			if !ok {
				return fmt.Errorf("status subscription ended")
			}
			r.hub.BroadcastStatus(ev)
		case ev, ok := <-merged:
			if !ok {
				return fmt.Errorf("merge subscription ended")
			}
			r.hub.BroadcastMerged(ev)
		}
	}
}
