// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/cache"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/validation"
)

const (
	// DefaultChunkSize is the number of records committed per batch.
	DefaultChunkSize = 400

	// TombstoneTTL is how long a locally deleted id is hidden from snapshots.
	TombstoneTTL = 30 * time.Second

	// ConflictLogWindow limits conflict warnings to one per id per window.
	ConflictLogWindow = 10 * time.Second

	defaultTombstoneCapacity = 4096
)

// ErrEngineClosed is returned by Push when the engine was closed before or
// during the push.
var ErrEngineClosed = errors.New("sync engine is closed")

// Engine pushes records to a DocumentStore and merges its snapshots.
type Engine struct {
	store      DocumentStore
	session    Session
	normalizer *validation.Normalizer
	chunkSize  int
	now        func() time.Time
	logger     zerolog.Logger

	tombstones *cache.LRUCache
	conflicts  *cache.LRUCache

	closed atomic.Bool

	hashMu   sync.Mutex
	lastHash uint64
	hasHash  bool
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	chunkSize         int
	tombstoneCapacity int
	now               func() time.Time
	logger            *zerolog.Logger
	normalizer        *validation.Normalizer
}

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(o *engineOptions) {
		o.chunkSize = n
	}
}

// WithTombstoneCapacity bounds how many pending deletions are remembered.
func WithTombstoneCapacity(n int) Option {
	return func(o *engineOptions) {
		o.tombstoneCapacity = n
	}
}

// WithClock replaces time.Now for SyncMeta stamps, tombstones and the
// conflict log window.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}

// WithLogger replaces the engine's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = &logger
	}
}

// WithNormalizer sets the Normalizer used to validate remote documents.
func WithNormalizer(n *validation.Normalizer) Option {
	return func(o *engineOptions) {
		o.normalizer = n
	}
}

// NewEngine creates an engine. store and session may be nil, in which case
// every remote operation is a no-op.
func NewEngine(store DocumentStore, session Session, opts ...Option) *Engine {
	o := engineOptions{
		chunkSize:         DefaultChunkSize,
		tombstoneCapacity: defaultTombstoneCapacity,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chunkSize <= 0 {
		o.chunkSize = DefaultChunkSize
	}
	if o.now == nil {
		o.now = time.Now
	}

	logger := logging.WithComponent("sync-engine")
	if o.logger != nil {
		logger = *o.logger
	}
	normalizer := o.normalizer
	if normalizer == nil {
		normalizer = validation.NewNormalizer(validation.WithClock(o.now), validation.WithLogger(logger))
	}

	clock := cache.WithClock(o.now)
	return &Engine{
		store:      store,
		session:    session,
		normalizer: normalizer,
		chunkSize:  o.chunkSize,
		now:        o.now,
		logger:     logger,
		tombstones: cache.NewLRUCache(o.tombstoneCapacity, TombstoneTTL, clock),
		conflicts:  cache.NewLRUCache(o.tombstoneCapacity, ConflictLogWindow, clock),
	}
}

// remoteCapability is a resolved store plus the user it acts for.
type remoteCapability struct {
	store DocumentStore
	uid   string
}

// remote resolves the capability once per operation.
func (e *Engine) remote() (remoteCapability, bool) {
	if e.store == nil || e.session == nil {
		return remoteCapability{}, false
	}
	uid, ok := e.session.UserID()
	if !ok || uid == "" {
		return remoteCapability{}, false
	}
	return remoteCapability{store: e.store, uid: uid}, true
}

// Available reports whether a store is configured and a user is signed in.
func (e *Engine) Available() bool {
	_, ok := e.remote()
	return ok
}

// Push writes records to the primary collection in sequential chunks.
func (e *Engine) Push(ctx context.Context, records []models.Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	rc, ok := e.remote()
	if !ok {
		metrics.RecordPushSkipped("unavailable")
		return nil
	}

	start := time.Now()
	pushed := 0
	defer func() {
		metrics.RecordPush(time.Since(start), pushed, err)
	}()

	log := logging.FromContext(ctx, e.logger).With().
		Str("uid", logging.MaskID(rc.uid)).
		Int("records", len(records)).
		Logger()

	meta := models.SyncMeta{
		Source:    models.SyncSourceLocal,
		UpdatedBy: rc.uid,
		UpdatedAt: models.MillisFrom(e.now()),
	}

	chunks := (len(records) + e.chunkSize - 1) / e.chunkSize
	for c := 0; c < chunks; c++ {
		if e.closed.Load() {
			log.Debug().Int("chunk", c+1).Int("chunks", chunks).Msg("engine closed, skipping remaining chunks")
			return ErrEngineClosed
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("push chunk %d/%d: %w", c+1, chunks, ctxErr)
		}

		lo := c * e.chunkSize
		hi := min(lo+e.chunkSize, len(records))

		docs := make([]Document, 0, hi-lo)
		for i := lo; i < hi; i++ {
			doc, encErr := encodeDocument(records[i], meta)
			if encErr != nil {
				log.Error().Err(encErr).Str("id", records[i].ID).Msg("record encoding failed")
				return fmt.Errorf("push chunk %d/%d: %w", c+1, chunks, encErr)
			}
			docs = append(docs, doc)
		}

		metrics.ObserveBatchSize(len(docs))
		if commitErr := rc.store.Commit(ctx, rc.uid, CollectionPrimary, docs); commitErr != nil {
			log.Error().
				Err(commitErr).
				Int("chunk", c+1).
				Int("chunks", chunks).
				Int("chunk_records", len(docs)).
				Int("pushed", pushed).
				Msg("batch commit failed")
			return fmt.Errorf("push chunk %d/%d: %w", c+1, chunks, commitErr)
		}
		pushed += len(docs)
	}

	log.Debug().Int("chunks", chunks).Msg("push complete")
	return nil
}

// PushAll pushes the full record set unless it is unchanged since the last
// successful PushAll. A call made while the remote is unavailable returns
// nil without recording a hash, so it never suppresses a later push.
func (e *Engine) PushAll(ctx context.Context, records []models.Record) error {
	if !e.Available() {
		return nil
	}

	hash := ContentHash(records)
	e.hashMu.Lock()
	unchanged := e.hasHash && e.lastHash == hash
	e.hashMu.Unlock()
	if unchanged {
		metrics.RecordPushSkipped("unchanged")
		return nil
	}

	if err := e.Push(ctx, records); err != nil {
		return err
	}

	e.hashMu.Lock()
	e.lastHash = hash
	e.hasHash = true
	e.hashMu.Unlock()
	return nil
}

// ResetContentHash forgets the last full-push hash so the next PushAll
// pushes unconditionally.
func (e *Engine) ResetContentHash() {
	e.hashMu.Lock()
	defer e.hashMu.Unlock()
	e.hasHash = false
	e.lastHash = 0
}

// MarkPendingDeletion hides id from snapshots for TombstoneTTL.
func (e *Engine) MarkPendingDeletion(id string) {
	e.tombstones.Add(id, e.now())
}

// IsPendingDeletion reports whether id has a live tombstone.
func (e *Engine) IsPendingDeletion(id string) bool {
	return e.tombstones.Contains(id)
}

// Delete tombstones id and removes it from the primary collection, then
// from the legacy collection. A legacy failure is only logged.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.MarkPendingDeletion(id)

	rc, ok := e.remote()
	if !ok {
		return nil
	}
	log := logging.FromContext(ctx, e.logger)
	if err := rc.store.Delete(ctx, rc.uid, CollectionPrimary, id); err != nil {
		log.Error().Err(err).Str("id", id).Msg("remote delete failed")
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := rc.store.Delete(ctx, rc.uid, CollectionLegacy, id); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("legacy cleanup delete failed")
	}
	return nil
}

// onConflict counts every conflict and logs at most one per id per window.
func (e *Engine) onConflict(id string, kept, rejected models.Record) {
	metrics.RecordConflict()
	if e.conflicts.IsDuplicate(id) {
		return
	}
	e.logger.Warn().
		Str("id", id).
		Int64("kept_updated_at", int64(kept.UpdatedAt)).
		Int64("rejected_updated_at", int64(rejected.UpdatedAt)).
		Msg("kept newer copy over stale primary document")
}

// NewMerger returns a Merger wired to this engine's tombstones, conflict log
// and normalizer.
func (e *Engine) NewMerger() *Merger {
	return NewMerger(e.normalizer, e.IsPendingDeletion, e.onConflict)
}

// Subscribe watches both collections and calls callback with the complete
// merged record set after every snapshot. The returned function stops both
// watches, discards queued snapshots and waits for a callback already
// running, so no callback runs once it has returned. It must not be called
// from inside callback. Without a remote, Subscribe does nothing and returns
// a no-op.
func (e *Engine) Subscribe(ctx context.Context, callback func([]models.Record)) (unsubscribe func()) {
	rc, ok := e.remote()
	if !ok || e.closed.Load() {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	log := logging.FromContext(ctx, e.logger).With().Str("uid", logging.MaskID(rc.uid)).Logger()

	var live atomic.Bool
	live.Store(true)

	snapshots := make(chan Snapshot)
	var producers sync.WaitGroup
	for _, coll := range []Collection{CollectionPrimary, CollectionLegacy} {
		updates, err := rc.store.Watch(ctx, rc.uid, coll)
		if err != nil {
			log.Error().Err(err).Str("collection", coll.String()).Msg("watch failed, collection will not contribute")
			continue
		}
		producers.Add(1)
		go func(coll Collection) {
			defer producers.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case snap, open := <-updates:
					if !open {
						if ctx.Err() == nil {
							log.Warn().Str("collection", coll.String()).Msg("watch ended")
						}
						return
					}
					snap.Collection = coll
					select {
					case snapshots <- snap:
					case <-ctx.Done():
						return
					}
				}
			}
		}(coll)
	}

	merger := e.NewMerger()
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapshots:
				if !live.Load() || e.closed.Load() {
					return
				}
				merged := merger.Apply(snap)
				metrics.SetMergedRecords(len(merged))
				if !live.Load() || e.closed.Load() {
					return
				}
				callback(merged)
			}
		}
	}()

	log.Info().Msg("subscribed to remote records")

	var once sync.Once
	return func() {
		once.Do(func() {
			live.Store(false)
			cancel()
			producers.Wait()
			consumer.Wait()
			log.Info().Msg("unsubscribed from remote records")
		})
	}
}

// Close stops in-flight pushes between chunks and silences subscriptions.
func (e *Engine) Close() {
	e.closed.Store(true)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	return e.closed.Load()
}
