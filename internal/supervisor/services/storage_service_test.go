// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type intervalRecorder struct {
	interval time.Duration
}

func (r *intervalRecorder) RunGCLoop(ctx context.Context, interval time.Duration) error {
	r.interval = interval
	return nil
}

func (r *intervalRecorder) Run(ctx context.Context, interval time.Duration) error {
	r.interval = interval
	return nil
}

type mockEmbeddedNATS struct {
	running     bool
	shutdownErr error
	shutdowns   atomic.Int32
}

func (m *mockEmbeddedNATS) Shutdown(ctx context.Context) error {
	m.shutdowns.Add(1)
	return m.shutdownErr
}

func (m *mockEmbeddedNATS) IsRunning() bool { return m.running }

func TestStorageServices_Interface(t *testing.T) {
	var _ suture.Service = (*GCService)(nil)
	var _ suture.Service = (*BackupService)(nil)
	var _ suture.Service = (*NATSServerService)(nil)
}

func TestGCAndBackupServices_Intervals(t *testing.T) {
	tests := []struct {
		name  string
		serve func(r *intervalRecorder) error
		want  time.Duration
	}{
		{"gc default", func(r *intervalRecorder) error { return NewGCService(r, 0).Serve(context.Background()) }, 10 * time.Minute},
		{"gc explicit", func(r *intervalRecorder) error { return NewGCService(r, time.Minute).Serve(context.Background()) }, time.Minute},
		{"backup default", func(r *intervalRecorder) error { return NewBackupService(r, -1).Serve(context.Background()) }, 24 * time.Hour},
		{"backup explicit", func(r *intervalRecorder) error { return NewBackupService(r, time.Hour).Serve(context.Background()) }, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &intervalRecorder{}
			if err := tt.serve(r); err != nil {
				t.Fatalf("Serve: %v", err)
			}
			if r.interval != tt.want {
				t.Errorf("interval = %v, want %v", r.interval, tt.want)
			}
		})
	}
}

func TestNATSServerService_Serve(t *testing.T) {
	t.Run("fails when server is not running", func(t *testing.T) {
		server := &mockEmbeddedNATS{}
		if err := NewNATSServerService(server, time.Second).Serve(context.Background()); err == nil {
			t.Fatal("expected error for stopped server")
		}
		if server.shutdowns.Load() != 0 {
			t.Error("Shutdown should not be called on a stopped server")
		}
	})

	t.Run("shuts down on cancel", func(t *testing.T) {
		server := &mockEmbeddedNATS{running: true}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewNATSServerService(server, time.Second).Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if server.shutdowns.Load() != 1 {
			t.Errorf("expected 1 Shutdown, got %d", server.shutdowns.Load())
		}
	})

	t.Run("returns shutdown error", func(t *testing.T) {
		shutdownErr := errors.New("drain timeout")
		server := &mockEmbeddedNATS{running: true, shutdownErr: shutdownErr}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewNATSServerService(server, time.Second).Serve(ctx); !errors.Is(err, shutdownErr) {
			t.Errorf("expected shutdown error, got %v", err)
		}
	})
}
