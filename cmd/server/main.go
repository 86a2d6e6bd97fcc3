// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/wardbook/internal/api"
	"github.com/tomtom215/wardbook/internal/auth"
	"github.com/tomtom215/wardbook/internal/backup"
	"github.com/tomtom215/wardbook/internal/config"
	"github.com/tomtom215/wardbook/internal/localstore"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/persistence"
	"github.com/tomtom215/wardbook/internal/supervisor"
	"github.com/tomtom215/wardbook/internal/supervisor/services"
	recsync "github.com/tomtom215/wardbook/internal/sync"
	"github.com/tomtom215/wardbook/internal/validation"
	ws "github.com/tomtom215/wardbook/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", version).
		Str("remote_backend", cfg.Remote.Backend).
		Str("events_backend", cfg.Events.Backend).
		Bool("store_in_memory", cfg.Store.InMemory).
		Msg("Starting Wardbook with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === LOCAL STORE ===

	kv, err := localstore.OpenBadger(localstore.BadgerConfig{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: true,
		GCRatio:    cfg.Store.GCRatio,
	})
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open local store")
	}
	store := localstore.New(kv, localstore.WithMaxValueBytes(cfg.Store.MaxValueBytes))
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing local store")
		}
	}()

	normalizer := validation.NewNormalizer()
	initial := persistence.Restore(store, normalizer)
	logging.Info().
		Int("records", len(initial.Records)).
		Int("tasks", len(initial.Tasks)).
		Msg("Local state restored")

	// === REMOTE ===

	rc, err := initRemote(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize remote backend")
	}
	defer rc.Close()

	// === SESSION ===

	session, err := initSession(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session")
	}

	// === SYNC ===

	engineOpts := []recsync.Option{
		recsync.WithChunkSize(cfg.Sync.ChunkSize),
		recsync.WithTombstoneCapacity(cfg.Sync.TombstoneCapacity),
		recsync.WithNormalizer(normalizer),
	}
	var engine *recsync.Engine
	if rc.store != nil {
		engine = recsync.NewEngine(rc.store, session, engineOpts...)
	} else {
		engine = recsync.NewEngine(nil, nil, engineOpts...)
		logging.Info().Msg("No remote backend configured, running local-only")
	}
	defer engine.Close()

	tracker := recsync.NewTracker()

	// A new user gets a fresh content hash and dirty set, so the first
	// cycle pushes everything to their account.
	session.OnSignOut(engine.ResetContentHash)
	session.OnSignOut(tracker.Reset)

	// === EVENTS ===

	bus, err := initEventBus(cfg, rc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	orchestrator := persistence.New(store, engine, tracker,
		persistence.WithDebounce(cfg.Sync.Debounce),
		persistence.WithPublisher(bus),
		persistence.WithInitialState(initial),
	)

	subscription := services.NewSubscriptionService(engine, orchestrator, bus)
	session.OnSignIn(func(string) { subscription.Restart() })
	session.OnSignOut(subscription.Restart)

	if cfg.Session.Token != "" {
		if claims, err := session.SignIn(cfg.Session.Token); err != nil {
			logging.Warn().Err(err).Msg("Configured session token rejected, starting signed out")
		} else {
			logging.Info().Str("user", logging.MaskID(claims.UserID())).Msg("Signed in from configuration")
		}
	}

	// === WEBSOCKET + API ===

	wsHub := ws.NewHub()
	relay := ws.NewRelay(bus, wsHub)

	handler := api.NewHandler(api.HandlerDeps{
		State:       orchestrator,
		Engine:      engine,
		Session:     session,
		Normalizer:  normalizer,
		Hub:         wsHub,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	})
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  15 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Data layer
	tree.AddDataService(services.NewPersistenceService(orchestrator))
	if !cfg.Store.InMemory {
		tree.AddDataService(services.NewGCService(kv, cfg.Store.GCInterval))
	}
	if rc.server != nil {
		tree.AddDataService(services.NewNATSServerService(rc.server, 10*time.Second))
	}
	if cfg.Backup.Enabled {
		archiver, err := backup.NewArchiver(cfg.Backup.Dir, orchestrator.Current, backup.WithKeep(cfg.Backup.Keep))
		if err != nil {
			logging.Fatal().Err(err).Str("dir", cfg.Backup.Dir).Msg("Failed to initialize backup archiver")
		}
		tree.AddDataService(services.NewBackupService(archiver, cfg.Backup.Interval))
		logging.Info().
			Str("dir", cfg.Backup.Dir).
			Dur("interval", cfg.Backup.Interval).
			Int("keep", cfg.Backup.Keep).
			Msg("Scheduled backups enabled")
	}

	// Sync layer
	tree.AddSyncService(subscription)
	tree.AddSyncService(services.NewWebSocketHubService(wsHub))
	tree.AddSyncService(services.NewRelayService(relay))

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Wardbook stopped gracefully")
}

// initSession creates the token session. Without a configured secret, which
// config validation only allows in local-only mode, tokens are signed with a
// per-process secret and do not survive a restart.
func initSession(cfg *config.Config) (*auth.TokenSession, error) {
	sessionCfg := cfg.Session
	if sessionCfg.JWTSecret == "" {
		sessionCfg.JWTSecret = uuid.NewString() + uuid.NewString()
		logging.Warn().Msg("JWT_SECRET not set, session tokens are valid for this process only")
	}
	tokens, err := auth.NewTokenManager(&sessionCfg)
	if err != nil {
		return nil, err
	}
	return auth.NewTokenSession(tokens), nil
}
