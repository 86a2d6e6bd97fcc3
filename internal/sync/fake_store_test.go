// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/models"
)

// staticSession is a Session with a fixed user.
type staticSession struct {
	uid string
}

func (s staticSession) UserID() (string, bool) {
	return s.uid, s.uid != ""
}

type commitCall struct {
	uid  string
	coll Collection
	ids  []string
	docs []Document
}

// fakeStore records commits and lets tests drive watch channels.
type fakeStore struct {
	mu        sync.Mutex
	commits   []commitCall
	deletes   []string
	commitErr func(n int) error // n is the 1-based commit number
	deleteErr map[Collection]error
	watchErr  map[Collection]error
	watches   map[Collection]chan Snapshot
	onCommit  func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deleteErr: make(map[Collection]error),
		watchErr:  make(map[Collection]error),
		watches:   make(map[Collection]chan Snapshot),
	}
}

func (f *fakeStore) Commit(_ context.Context, uid string, coll Collection, docs []Document) error {
	f.mu.Lock()
	n := len(f.commits) + 1
	hook := f.commitErr
	onCommit := f.onCommit
	f.mu.Unlock()

	if hook != nil {
		if err := hook(n); err != nil {
			return err
		}
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	f.mu.Lock()
	f.commits = append(f.commits, commitCall{uid: uid, coll: coll, ids: ids, docs: docs})
	f.mu.Unlock()

	if onCommit != nil {
		onCommit()
	}
	return nil
}

func (f *fakeStore) Set(ctx context.Context, uid string, coll Collection, doc Document) error {
	return f.Commit(ctx, uid, coll, []Document{doc})
}

func (f *fakeStore) Delete(_ context.Context, _ string, coll Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[coll]; err != nil {
		return err
	}
	f.deletes = append(f.deletes, string(coll)+"/"+id)
	return nil
}

func (f *fakeStore) Watch(ctx context.Context, _ string, coll Collection) (<-chan Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.watchErr[coll]; err != nil {
		return nil, err
	}
	ch := make(chan Snapshot, 8)
	f.watches[coll] = ch
	return ch, nil
}

func (f *fakeStore) commitCalls() []commitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]commitCall(nil), f.commits...)
}

func (f *fakeStore) watch(t *testing.T, coll Collection) chan Snapshot {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.watches[coll]
	if !ok {
		t.Fatalf("no watch open on %s", coll)
	}
	return ch
}

var errCommit = errors.New("remote unavailable")

func makeRecords(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{
			ID:        "r" + strconv.Itoa(i),
			Name:      "Patient " + strconv.Itoa(i),
			CreatedAt: 1,
			UpdatedAt: models.Millis(100 + i),
		}
	}
	return out
}

func rec(id string, updatedAt int64) models.Record {
	return models.Record{ID: id, Name: id, CreatedAt: 1, UpdatedAt: models.Millis(updatedAt)}
}

func snapshotOf(t *testing.T, coll Collection, records ...models.Record) Snapshot {
	t.Helper()
	docs := make([]json.RawMessage, 0, len(records))
	for i := range records {
		b, err := json.Marshal(records[i])
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		docs = append(docs, b)
	}
	return Snapshot{Collection: coll, Documents: docs}
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recvMerged waits for one callback invocation.
func recvMerged(t *testing.T, ch <-chan []models.Record) []models.Record {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for merged callback")
		return nil
	}
}
