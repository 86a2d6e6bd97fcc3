// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wardbook/internal/metrics"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

func testBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  4,
		FailureRatio: 0.5,
	}
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	boom := errors.New("remote down")
	inner.SetCommitHook(func(string, recsync.Collection, []recsync.Document) error { return boom })

	b := NewBreakerStore(inner, testBreakerConfig("test-opens"))
	docs := []recsync.Document{doc(t, "p1", 1)}

	for i := 0; i < 4; i++ {
		if err := b.Commit(ctx, testUID, recsync.CollectionPrimary, docs); !errors.Is(err, boom) {
			t.Fatalf("commit %d: err = %v, want %v", i, err, boom)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", b.StateString())
	}

	err := b.Commit(ctx, testUID, recsync.CollectionPrimary, docs)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test-opens", "rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-opens")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
}

func TestBreakerStore_CancellationDoesNotTrip(t *testing.T) {
	inner := NewMemoryStore()
	b := NewBreakerStore(inner, testBreakerConfig("test-cancel"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		if err := b.Set(ctx, testUID, recsync.CollectionPrimary, doc(t, "p1", 1)); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", b.StateString())
	}
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	b := NewBreakerStore(inner, DefaultBreakerConfig())

	if err := b.Set(ctx, testUID, recsync.CollectionPrimary, doc(t, "p1", 1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ch, err := b.Watch(ctx, testUID, recsync.CollectionPrimary)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if ids := snapshotIDs(t, recvSnapshot(t, ch)); len(ids) != 1 {
		t.Errorf("ids = %v", ids)
	}
	if err := b.Delete(ctx, testUID, recsync.CollectionPrimary, "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if inner.Len(testUID, recsync.CollectionPrimary) != 0 {
		t.Error("delete did not reach inner store")
	}
}
