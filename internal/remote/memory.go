// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package remote

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// Ensure MemoryStore implements DocumentStore
var _ recsync.DocumentStore = (*MemoryStore)(nil)

// CommitHook runs before a batch is applied. A non-nil error fails the
// commit and nothing is written.
type CommitHook func(uid string, coll recsync.Collection, docs []recsync.Document) error

// CommitEntry records one successful Commit.
type CommitEntry struct {
	UID        string
	Collection recsync.Collection
	IDs        []string
}

type partitionKey struct {
	uid  string
	coll recsync.Collection
}

// partition keeps documents in first-write order.
type partition struct {
	order []string
	docs  map[string]json.RawMessage
}

func (p *partition) put(id string, body json.RawMessage) {
	if _, ok := p.docs[id]; !ok {
		p.order = append(p.order, id)
	}
	p.docs[id] = append(json.RawMessage(nil), body...)
}

func (p *partition) remove(id string) {
	if _, ok := p.docs[id]; !ok {
		return
	}
	delete(p.docs, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *partition) snapshot(coll recsync.Collection) recsync.Snapshot {
	docs := make([]json.RawMessage, 0, len(p.order))
	for _, id := range p.order {
		docs = append(docs, append(json.RawMessage(nil), p.docs[id]...))
	}
	return recsync.Snapshot{Collection: coll, Documents: docs}
}

type memoryWatch struct {
	ch chan recsync.Snapshot
}

// offer replaces any undelivered snapshot with s. Snapshots are complete, so
// a slow reader only ever misses intermediate states.
func (w *memoryWatch) offer(s recsync.Snapshot) {
	for {
		select {
		case w.ch <- s:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

// MemoryStore is an in-process DocumentStore.
type MemoryStore struct {
	mu         sync.Mutex
	partitions map[partitionKey]*partition
	watches    map[partitionKey]map[*memoryWatch]struct{}
	hook       CommitHook
	commits    []CommitEntry
	closed     bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[partitionKey]*partition),
		watches:    make(map[partitionKey]map[*memoryWatch]struct{}),
	}
}

// SetCommitHook installs hook, or removes it when nil.
func (m *MemoryStore) SetCommitHook(hook CommitHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Commits returns every successful Commit in order.
func (m *MemoryStore) Commits() []CommitEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CommitEntry, len(m.commits))
	copy(out, m.commits)
	return out
}

// Get returns the stored body of one document.
func (m *MemoryStore) Get(uid string, coll recsync.Collection, id string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partitions[partitionKey{uid, coll}]
	if !ok {
		return nil, false
	}
	body, ok := p.docs[id]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), body...), true
}

// Len returns the number of documents in one collection.
func (m *MemoryStore) Len(uid string, coll recsync.Collection) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.partitions[partitionKey{uid, coll}]; ok {
		return len(p.order)
	}
	return 0
}

// partitionLocked must be called with mu held.
func (m *MemoryStore) partitionLocked(k partitionKey) *partition {
	p, ok := m.partitions[k]
	if !ok {
		p = &partition{docs: make(map[string]json.RawMessage)}
		m.partitions[k] = p
	}
	return p
}

// notifyLocked must be called with mu held.
func (m *MemoryStore) notifyLocked(k partitionKey) {
	watches := m.watches[k]
	if len(watches) == 0 {
		return
	}
	snap := m.partitionLocked(k).snapshot(k.coll)
	for w := range watches {
		w.offer(snap)
	}
}

// Commit applies docs atomically.
func (m *MemoryStore) Commit(ctx context.Context, uid string, coll recsync.Collection, docs []recsync.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if m.hook != nil {
		if err := m.hook(uid, coll, docs); err != nil {
			return err
		}
	}

	k := partitionKey{uid, coll}
	p := m.partitionLocked(k)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		p.put(d.ID, d.Body)
		ids = append(ids, d.ID)
	}
	m.commits = append(m.commits, CommitEntry{UID: uid, Collection: coll, IDs: ids})
	m.notifyLocked(k)
	return nil
}

// Set writes one document.
func (m *MemoryStore) Set(ctx context.Context, uid string, coll recsync.Collection, doc recsync.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	k := partitionKey{uid, coll}
	m.partitionLocked(k).put(doc.ID, doc.Body)
	m.notifyLocked(k)
	return nil
}

// Delete removes one document. A missing document is not an error.
func (m *MemoryStore) Delete(ctx context.Context, uid string, coll recsync.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	k := partitionKey{uid, coll}
	p, ok := m.partitions[k]
	if !ok {
		return nil
	}
	if _, exists := p.docs[id]; !exists {
		return nil
	}
	p.remove(id)
	m.notifyLocked(k)
	return nil
}

// Watch delivers the current snapshot immediately and a new one after every
// change. The channel closes when ctx is done or the store is closed.
func (m *MemoryStore) Watch(ctx context.Context, uid string, coll recsync.Collection) (<-chan recsync.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	k := partitionKey{uid, coll}
	w := &memoryWatch{ch: make(chan recsync.Snapshot, 1)}
	if m.watches[k] == nil {
		m.watches[k] = make(map[*memoryWatch]struct{})
	}
	m.watches[k][w] = struct{}{}
	w.offer(m.partitionLocked(k).snapshot(coll))

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watches[k][w]; ok {
			delete(m.watches[k], w)
			close(w.ch)
		}
	}()
	return w.ch, nil
}

// Close fails every later operation and ends all watches.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for k, watches := range m.watches {
		for w := range watches {
			close(w.ch)
		}
		delete(m.watches, k)
	}
	return nil
}
