// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package services

import (
	"context"
	"fmt"
	"time"
)

// GCRunner matches *localstore.BadgerKV.
type GCRunner interface {
	RunGCLoop(ctx context.Context, interval time.Duration) error
}

// GCService runs value log garbage collection for the local store.
type GCService struct {
	store    GCRunner
	interval time.Duration
	name     string
}

// NewGCService wraps store. A non-positive interval uses ten minutes.
func NewGCService(store GCRunner, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{store: store, interval: interval, name: "localstore-gc"}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	return s.store.RunGCLoop(ctx, s.interval)
}

func (s *GCService) String() string {
	return s.name
}

// ArchiveRunner matches *backup.Archiver.
type ArchiveRunner interface {
	Run(ctx context.Context, interval time.Duration) error
}

// BackupService writes scheduled backup archives.
type BackupService struct {
	archiver ArchiveRunner
	interval time.Duration
	name     string
}

// NewBackupService wraps archiver. A non-positive interval uses 24 hours.
func NewBackupService(archiver ArchiveRunner, interval time.Duration) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{archiver: archiver, interval: interval, name: "backup-archiver"}
}

// Serve implements suture.Service.
func (s *BackupService) Serve(ctx context.Context) error {
	return s.archiver.Run(ctx, s.interval)
}

func (s *BackupService) String() string {
	return s.name
}

// EmbeddedNATS matches *remote.EmbeddedServer.
type EmbeddedNATS interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSServerService owns the lifetime of an embedded NATS server that was
// started before the tree, since the remote store and event bus connect to it
// during start-up. The server cannot be restarted in place, so a server found
// stopped is a permanent failure.
type NATSServerService struct {
	server          EmbeddedNATS
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService wraps server.
func NewNATSServerService(server EmbeddedNATS, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return fmt.Errorf("embedded NATS server is not running")
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("embedded NATS shutdown failed: %w", err)
	}
	return ctx.Err()
}

func (s *NATSServerService) String() string {
	return s.name
}
