// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

// Package events is the internal publish/subscribe bus built on Watermill.
//
// Two topics exist: TopicStatus carries persistence status transitions and
// TopicMerged carries merged record sets from the remote subscription. The
// persistence orchestrator and the subscription service publish; the
// WebSocket relay subscribes. NewMemoryBus uses a Watermill gochannel,
// NewNATSBus uses core NATS subjects so several instances share events.
package events
