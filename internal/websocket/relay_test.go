// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/wardbook/internal/events"
)

func TestRelay_ForwardsBusEvents(t *testing.T) {
	bus := events.NewMemoryBus()
	defer bus.Close()

	hub := startHub(t)
	conn := dial(t, serveHub(t, hub))
	waitClients(t, hub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relayDone := make(chan error, 1)
	go func() { relayDone <- NewRelay(bus, hub).Serve(ctx) }()

	// The relay subscribes asynchronously; gochannel drops events published
	// before that, so keep publishing until one arrives.
	got := make(chan rawMessage, 1)
	go func() { got <- readMessage(t, conn) }()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-got:
			if msg.Type != MessageTypeSyncStatus || msg.Data["status"] != "error" {
				t.Errorf("message = %+v", msg)
			}
			cancel()
			select {
			case err := <-relayDone:
				if err != context.Canceled {
					t.Errorf("Serve() = %v, want context.Canceled", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("relay did not stop")
			}
			return
		case <-tick.C:
			_ = bus.PublishStatus(ctx, events.StatusEvent{Status: "error", Error: "remote unavailable"})
		case <-deadline:
			t.Fatal("no event relayed")
		}
	}
}
