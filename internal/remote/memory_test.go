// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package remote

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/models"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

const testUID = "user-0001-abcd"

func doc(t *testing.T, id string, updatedAt int64) recsync.Document {
	t.Helper()
	body, err := json.Marshal(models.Record{ID: id, Name: "Patient " + id, UpdatedAt: models.Millis(updatedAt)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return recsync.Document{ID: id, Body: body}
}

func recvSnapshot(t *testing.T, ch <-chan recsync.Snapshot) recsync.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed")
		}
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return recsync.Snapshot{}
}

func snapshotIDs(t *testing.T, snap recsync.Snapshot) []string {
	t.Helper()
	ids := make([]string, 0, len(snap.Documents))
	for _, raw := range snap.Documents {
		var r models.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		ids = append(ids, r.ID)
	}
	return ids
}

func TestMemoryStore_WatchDeliversInitialAndUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemoryStore()
	if err := m.Set(ctx, testUID, recsync.CollectionLegacy, doc(t, "p1", 10)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ch, err := m.Watch(ctx, testUID, recsync.CollectionLegacy)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if got := snapshotIDs(t, recvSnapshot(t, ch)); len(got) != 1 || got[0] != "p1" {
		t.Fatalf("initial snapshot = %v, want [p1]", got)
	}

	if err := m.Commit(ctx, testUID, recsync.CollectionLegacy, []recsync.Document{doc(t, "p2", 20)}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := snapshotIDs(t, recvSnapshot(t, ch)); len(got) != 2 || got[1] != "p2" {
		t.Fatalf("snapshot after commit = %v, want [p1 p2]", got)
	}

	if err := m.Delete(ctx, testUID, recsync.CollectionLegacy, "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := snapshotIDs(t, recvSnapshot(t, ch)); len(got) != 1 || got[0] != "p2" {
		t.Fatalf("snapshot after delete = %v, want [p2]", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryStore_PartitionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_ = m.Set(ctx, "alice", recsync.CollectionPrimary, doc(t, "p1", 1))
	_ = m.Set(ctx, "bob", recsync.CollectionPrimary, doc(t, "p1", 2))
	_ = m.Set(ctx, "alice", recsync.CollectionLegacy, doc(t, "p9", 3))

	if n := m.Len("alice", recsync.CollectionPrimary); n != 1 {
		t.Errorf("alice primary = %d, want 1", n)
	}
	if n := m.Len("bob", recsync.CollectionLegacy); n != 0 {
		t.Errorf("bob legacy = %d, want 0", n)
	}
	body, ok := m.Get("bob", recsync.CollectionPrimary, "p1")
	if !ok {
		t.Fatal("bob p1 missing")
	}
	var r models.Record
	if err := json.Unmarshal(body, &r); err != nil || r.UpdatedAt != 2 {
		t.Errorf("bob p1 = %+v (err %v), want updatedAt 2", r, err)
	}
}

func TestMemoryStore_CommitHookFailsWholeBatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	boom := errors.New("unavailable")
	m.SetCommitHook(func(string, recsync.Collection, []recsync.Document) error { return boom })

	docs := []recsync.Document{doc(t, "p1", 1), doc(t, "p2", 1)}
	if err := m.Commit(ctx, testUID, recsync.CollectionPrimary, docs); !errors.Is(err, boom) {
		t.Fatalf("Commit error = %v, want %v", err, boom)
	}
	if n := m.Len(testUID, recsync.CollectionPrimary); n != 0 {
		t.Errorf("failed commit wrote %d documents", n)
	}
	if len(m.Commits()) != 0 {
		t.Error("failed commit recorded in log")
	}

	m.SetCommitHook(nil)
	if err := m.Commit(ctx, testUID, recsync.CollectionPrimary, docs); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	log := m.Commits()
	if len(log) != 1 || len(log[0].IDs) != 2 || log[0].Collection != recsync.CollectionPrimary {
		t.Errorf("commit log = %+v", log)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	ch, err := m.Watch(ctx, testUID, recsync.CollectionPrimary)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	recvSnapshot(t, ch)

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("watch channel still open after Close")
	}
	if err := m.Set(ctx, testUID, recsync.CollectionPrimary, doc(t, "p1", 1)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Set after Close = %v, want ErrStoreClosed", err)
	}
	if _, err := m.Watch(ctx, testUID, recsync.CollectionPrimary); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Watch after Close = %v, want ErrStoreClosed", err)
	}
}

// TestMemoryStore_EngineRoundTrip pushes through a real engine and reads the
// merged result back through Subscribe.
func TestMemoryStore_EngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.Set(ctx, testUID, recsync.CollectionLegacy, doc(t, "old", 5))

	engine := recsync.NewEngine(m, staticUser(testUID), recsync.WithChunkSize(2))
	defer engine.Close()

	records := make([]models.Record, 5)
	for i := range records {
		records[i] = models.Record{ID: "p" + strconv.Itoa(i), UpdatedAt: models.Millis(100 + i)}
	}
	if err := engine.Push(ctx, records); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if n := len(m.Commits()); n != 3 {
		t.Errorf("commits = %d, want 3", n)
	}

	merged := make(chan []models.Record, 4)
	unsubscribe := engine.Subscribe(ctx, func(rs []models.Record) { merged <- rs })
	defer unsubscribe()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case rs := <-merged:
			if len(rs) == 6 {
				if rs[0].ID != "old" {
					t.Errorf("first merged id = %s, want legacy record first", rs[0].ID)
				}
				return
			}
		case <-deadline:
			t.Fatal("never saw the full merged set")
		}
	}
}

type staticUser string

func (s staticUser) UserID() (string, bool) {
	return string(s), s != ""
}
