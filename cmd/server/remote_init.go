// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/wardbook/internal/config"
	"github.com/tomtom215/wardbook/internal/events"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/remote"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// remoteComponents holds what initRemote created. store is nil in
// local-only mode; server is nil unless an embedded NATS server was started.
type remoteComponents struct {
	store   recsync.DocumentStore
	server  *remote.EmbeddedServer
	closers []func() error
	natsURL string
}

// Close releases the connection and store. The embedded server is shut
// down by its supervisor service.
func (rc *remoteComponents) Close() {
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Error closing remote component")
		}
	}
}

func initRemote(ctx context.Context, cfg *config.Config) (*remoteComponents, error) {
	rc := &remoteComponents{natsURL: cfg.Remote.NATSURL}

	var store recsync.DocumentStore
	switch cfg.Remote.Backend {
	case config.RemoteBackendNone:
		return rc, nil

	case config.RemoteBackendMemory:
		store = remote.NewMemoryStore()
		logging.Warn().Msg("Using in-memory remote store, documents are lost on restart")

	case config.RemoteBackendNATS:
		natsStore, err := initNATSStore(ctx, cfg, rc)
		if err != nil {
			rc.Close()
			return nil, err
		}
		store = natsStore

	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}

	if b := cfg.Remote.Breaker; b.Enabled {
		store = remote.NewBreakerStore(store, remote.BreakerConfig{
			Name:         "remote-" + cfg.Remote.Backend,
			MaxRequests:  b.MaxRequests,
			Interval:     b.Interval,
			Timeout:      b.Timeout,
			MinRequests:  b.MinRequests,
			FailureRatio: b.FailureRatio,
		})
		logging.Info().Uint32("min_requests", b.MinRequests).Float64("failure_ratio", b.FailureRatio).Msg("Remote circuit breaker enabled")
	}

	rc.store = store
	return rc, nil
}

func initNATSStore(ctx context.Context, cfg *config.Config, rc *remoteComponents) (*remote.NATSStore, error) {
	if cfg.Remote.Embedded {
		srv, err := remote.NewEmbeddedServer(remote.ServerConfig{
			Host:               "127.0.0.1",
			Port:               -1,
			StoreDir:           cfg.Remote.StoreDir,
			JetStreamMaxMemory: cfg.Remote.MaxMemory,
			JetStreamMaxStore:  cfg.Remote.MaxStore,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		rc.server = srv
		rc.natsURL = srv.ClientURL()
		logging.Info().Str("url", rc.natsURL).Str("store_dir", cfg.Remote.StoreDir).Msg("Embedded NATS server started")
	}

	nc, err := natsgo.Connect(rc.natsURL,
		natsgo.Name("wardbook-remote"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", rc.natsURL, err)
	}
	rc.closers = append(rc.closers, func() error { nc.Close(); return nil })

	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	store, err := remote.NewNATSStore(setupCtx, nc, remote.NATSConfig{
		Bucket:        cfg.Remote.Bucket,
		WriteRate:     cfg.Remote.WriteRate,
		WriteBurst:    cfg.Remote.WriteBurst,
		MaxValueBytes: cfg.Remote.MaxValueBytes,
	})
	if err != nil {
		return nil, err
	}
	rc.closers = append(rc.closers, store.Close)

	logging.Info().Str("bucket", cfg.Remote.Bucket).Msg("NATS remote store ready")
	return store, nil
}

// initEventBus creates the status and merge event bus. The nats bus reuses
// the remote's server URL, including an embedded server's.
func initEventBus(cfg *config.Config, rc *remoteComponents) (*events.Bus, error) {
	switch cfg.Events.Backend {
	case config.EventsBackendNATS:
		bus, err := events.NewNATSBus(events.DefaultNATSBusConfig(rc.natsURL))
		if err != nil {
			return nil, fmt.Errorf("connect event bus: %w", err)
		}
		logging.Info().Str("url", rc.natsURL).Msg("NATS event bus connected")
		return bus, nil
	default:
		return events.NewMemoryBus(), nil
	}
}
