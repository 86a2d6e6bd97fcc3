// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package persistence

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/auth"
	"github.com/tomtom215/wardbook/internal/localstore"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/remote"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// TestEndToEnd_LocalEditPushAndMerge follows one record from a local edit
// through the tracker, a push and a remote snapshot that also carries an
// older legacy copy.
func TestEndToEnd_LocalEditPushAndMerge(t *testing.T) {
	ctx := context.Background()
	const uid = "user-0001-abcd"
	quiet := logging.NewTestLogger(io.Discard)

	store := localstore.New(localstore.NewMemoryKV(), localstore.WithLogger(quiet))
	docs := remote.NewMemoryStore()
	engine := recsync.NewEngine(docs, auth.StaticSession(uid), recsync.WithLogger(quiet))
	defer engine.Close()
	tracker := recsync.NewTracker()

	orch := New(store, engine, tracker, WithDebounce(time.Hour), WithLogger(quiet))
	if err := orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer orch.Stop()

	// Create p1 locally.
	p1 := models.Record{ID: "p1", Name: "Test", UpdatedAt: 1000}
	orch.Observe(stateWith(p1))
	if err := orch.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	local := localstore.Load[models.Record](store, localstore.KeyRecords)
	if len(local) != 1 || local[0].ID != "p1" || local[0].UpdatedAt != 1000 {
		t.Fatalf("local records = %+v", local)
	}
	if tracker.IsDirty("p1", 1000) {
		t.Fatal("p1@1000 dirty after first cycle")
	}

	// Edit it.
	p1.UpdatedAt = 2000
	if !tracker.IsDirty("p1", 2000) {
		t.Fatal("p1@2000 not dirty after edit")
	}
	orch.Observe(stateWith(p1))
	if err := orch.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if tracker.IsDirty("p1", 2000) {
		t.Fatal("p1@2000 still dirty after push")
	}
	if st := orch.Status(); st.Status != StatusSynced || st.Pushed != 1 {
		t.Fatalf("state = %+v", st)
	}

	// A stale legacy copy exists remotely alongside the pushed primary.
	stale, err := json.Marshal(models.Record{ID: "p1", Name: "Old", UpdatedAt: 1500})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := docs.Set(ctx, uid, recsync.CollectionLegacy, recsync.Document{ID: "p1", Body: stale}); err != nil {
		t.Fatalf("Set legacy: %v", err)
	}

	merged := make(chan []models.Record, 8)
	unsubscribe := engine.Subscribe(ctx, func(rs []models.Record) {
		orch.ApplyRemote(rs)
		merged <- rs
	})
	defer unsubscribe()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case rs := <-merged:
			if len(rs) != 1 {
				t.Fatalf("merged = %+v, want one record", rs)
			}
			if rs[0].UpdatedAt == 2000 && rs[0].Name == "Test" {
				if rs[0].SyncMeta == nil || rs[0].SyncMeta.UpdatedBy != uid {
					t.Errorf("syncMeta = %+v", rs[0].SyncMeta)
				}
				if tracker.IsDirty("p1", 2000) {
					t.Error("merged record marked dirty")
				}
				return
			}
		case <-deadline:
			t.Fatal("merged callback never yielded the updatedAt 2000 version")
		}
	}
}
