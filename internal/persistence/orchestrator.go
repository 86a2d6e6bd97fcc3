// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/events"
	"github.com/tomtom215/wardbook/internal/localstore"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	"github.com/tomtom215/wardbook/internal/models"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// DefaultDebounce is the quiet period before a change is persisted.
const DefaultDebounce = 300 * time.Millisecond

// Pusher is the part of the sync engine the orchestrator uses.
type Pusher interface {
	Available() bool
	Push(ctx context.Context, records []models.Record) error
}

// StatusPublisher receives every status transition.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev events.StatusEvent) error
}

// Orchestrator saves the application state locally and pushes changed
// records, debounced so that a burst of edits costs one cycle.
type Orchestrator struct {
	store     *localstore.Store
	engine    Pusher
	tracker   *recsync.Tracker
	publisher StatusPublisher
	debounce  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu       sync.Mutex
	ctx      context.Context
	started  bool
	stopping bool
	timer    *time.Timer
	pending  *models.AppState
	current  models.AppState
	state    State
	cycles   sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithPublisher publishes status transitions to p.
func WithPublisher(p StatusPublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithClock replaces time.Now for SyncedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLogger replaces the orchestrator's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithInitialState seeds Current, usually with the result of Restore.
func WithInitialState(st models.AppState) Option {
	return func(o *Orchestrator) {
		o.current = st
	}
}

// New creates an orchestrator. engine may report itself unavailable, in
// which case cycles only save locally.
func New(store *localstore.Store, engine Pusher, tracker *recsync.Tracker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		engine:   engine,
		tracker:  tracker,
		debounce: DefaultDebounce,
		now:      time.Now,
		logger:   logging.WithComponent("persistence"),
		state:    State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	metrics.SetPersistenceStatus(string(StatusIdle))
	return o
}

// Start enables debounced cycles. ctx bounds every push started by a timer.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started && !o.stopping {
		return nil
	}
	o.ctx = ctx
	o.started = true
	o.stopping = false
	if o.pending != nil {
		o.scheduleLocked()
	}
	o.logger.Info().Dur("debounce", o.debounce).Msg("persistence orchestrator started")
	return nil
}

// Stop cancels the debounce timer, waits for running cycles and then
// persists a pending change, if any, before returning.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.started || o.stopping {
		o.mu.Unlock()
		return nil
	}
	o.stopping = true
	if o.timer != nil {
		o.timer.Stop()
	}
	o.mu.Unlock()

	o.cycles.Wait()

	// The start context is usually already cancelled at this point; the
	// final flush gets its own bounded context.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := o.Flush(ctx)

	o.mu.Lock()
	o.started = false
	o.mu.Unlock()

	o.logger.Info().Msg("persistence orchestrator stopped")
	return err
}

// Observe records a new application state. The status becomes saving at
// once, and the state is persisted after the debounce period unless another
// Observe arrives first. The caller must not modify st afterwards.
func (o *Orchestrator) Observe(st models.AppState) {
	o.mu.Lock()
	ev, changed := o.observeLocked(st)
	o.mu.Unlock()

	if changed {
		o.publish(ev)
	}
}

// observeLocked must be called with mu held.
func (o *Orchestrator) observeLocked(st models.AppState) (events.StatusEvent, bool) {
	o.pending = &st
	o.current = st
	ev, changed := o.setStateLocked(State{
		Status:   StatusSaving,
		SyncedAt: o.state.SyncedAt,
	})
	if o.started && !o.stopping {
		o.scheduleLocked()
	}
	return ev, changed
}

// ApplyRemote merges the merged remote record set into the current state by
// id. A local record survives when its UpdatedAt is strictly greater than the
// remote copy, or when it exists only locally and has not been synced yet.
// A local-only record that is pending deletion, or that was synced before
// and is now gone remotely, is dropped. Only adopted remote copies are
// marked synced, so surviving local edits are pushed by the next cycle.
func (o *Orchestrator) ApplyRemote(records []models.Record) {
	o.mu.Lock()
	merged := o.mergeRemoteLocked(records)
	st := o.current
	st.Records = merged
	ev, changed := o.observeLocked(st)
	o.mu.Unlock()

	if changed {
		o.publish(ev)
	}
}

// mergeRemoteLocked must be called with mu held. The result lists local ids
// in local order followed by remote-only ids in remote order.
func (o *Orchestrator) mergeRemoteLocked(remote []models.Record) []models.Record {
	byID := make(map[string]models.Record, len(remote))
	for _, r := range remote {
		byID[r.ID] = r
	}

	out := make([]models.Record, 0, len(o.current.Records)+len(remote))
	seen := make(map[string]struct{}, len(o.current.Records))
	for _, local := range o.current.Records {
		if _, dup := seen[local.ID]; dup {
			continue
		}
		seen[local.ID] = struct{}{}

		r, ok := byID[local.ID]
		switch {
		case ok && local.UpdatedAt > r.UpdatedAt:
			out = append(out, local)
		case ok:
			o.tracker.MarkSynced(r.ID, r.UpdatedAt)
			out = append(out, r)
		case o.pendingDeletion(local.ID):
			// tombstoned, dropped
		case !o.tracker.IsDirty(local.ID, local.UpdatedAt):
			o.tracker.Forget(local.ID)
		default:
			out = append(out, local)
		}
	}

	for _, r := range remote {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		o.tracker.MarkSynced(r.ID, r.UpdatedAt)
		out = append(out, r)
	}
	return out
}

// pendingDeletion reports whether the engine holds a tombstone for id.
func (o *Orchestrator) pendingDeletion(id string) bool {
	d, ok := o.engine.(interface{ IsPendingDeletion(id string) bool })
	return ok && d.IsPendingDeletion(id)
}

// Current returns the most recently observed state.
func (o *Orchestrator) Current() models.AppState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Status returns the current persistence state.
func (o *Orchestrator) Status() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// scheduleLocked must be called with mu held.
func (o *Orchestrator) scheduleLocked() {
	if o.timer == nil {
		o.timer = time.AfterFunc(o.debounce, o.fire)
		return
	}
	o.timer.Reset(o.debounce)
}

func (o *Orchestrator) fire() {
	o.mu.Lock()
	if o.stopping || o.pending == nil {
		o.mu.Unlock()
		return
	}
	st := *o.pending
	o.pending = nil
	ctx := o.ctx
	o.cycles.Add(1)
	o.mu.Unlock()

	defer o.cycles.Done()
	_ = o.run(logging.ContextWithNewCorrelationID(ctx), st)
}

// Flush persists the pending change now instead of waiting for the timer.
// It returns the push error, if any.
func (o *Orchestrator) Flush(ctx context.Context) error {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
	}
	if o.pending == nil {
		o.mu.Unlock()
		return nil
	}
	st := *o.pending
	o.pending = nil
	o.mu.Unlock()

	return o.run(logging.ContextWithNewCorrelationID(ctx), st)
}

// run executes one cycle: save every slice, then push the dirty records.
func (o *Orchestrator) run(ctx context.Context, st models.AppState) error {
	start := time.Now()
	log := logging.FromContext(ctx, o.logger)

	saveAll(o.store, st)

	dirty := o.tracker.Dirty(st.Records)
	available := o.engine != nil && o.engine.Available()

	if len(dirty) == 0 || !available {
		next := State{Status: StatusIdle, SyncedAt: o.Status().SyncedAt}
		outcome := "idle"
		if available {
			next = State{Status: StatusSynced, SyncedAt: o.now()}
			outcome = "synced"
		}
		log.Debug().Int("dirty", len(dirty)).Bool("remote", available).Msg("nothing to push")
		o.finish(next)
		metrics.RecordPersistenceCycle(outcome, time.Since(start))
		return nil
	}

	if err := o.engine.Push(ctx, dirty); err != nil {
		log.Error().Err(err).Int("dirty", len(dirty)).Msg("push failed, will retry on next change")
		o.finish(State{Status: StatusError, Error: err.Error(), SyncedAt: o.Status().SyncedAt})
		metrics.RecordPersistenceCycle("error", time.Since(start))
		return err
	}

	for _, r := range dirty {
		o.tracker.MarkSynced(r.ID, r.UpdatedAt)
	}
	log.Debug().Int("pushed", len(dirty)).Dur("duration", time.Since(start)).Msg("persistence cycle complete")
	o.finish(State{Status: StatusSynced, SyncedAt: o.now(), Pushed: len(dirty)})
	metrics.RecordPersistenceCycle("synced", time.Since(start))
	return nil
}

// finish applies the result of a cycle unless a newer change is already
// pending, in which case the status stays saving.
func (o *Orchestrator) finish(next State) {
	o.mu.Lock()
	if o.pending != nil {
		o.mu.Unlock()
		return
	}
	ev, changed := o.setStateLocked(next)
	o.mu.Unlock()

	if changed {
		o.publish(ev)
	}
}

// setStateLocked must be called with mu held.
func (o *Orchestrator) setStateLocked(next State) (events.StatusEvent, bool) {
	if next == o.state && next.Status == StatusSaving {
		return events.StatusEvent{}, false
	}
	o.state = next
	metrics.SetPersistenceStatus(string(next.Status))
	return next.event(o.now()), true
}

func (o *Orchestrator) publish(ev events.StatusEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishStatus(context.Background(), ev); err != nil {
		o.logger.Debug().Err(err).Str("status", ev.Status).Msg("status event not published")
	}
}

// saveAll writes every slice. Failures are logged and counted by the store
// and never abort the cycle.
func saveAll(store *localstore.Store, st models.AppState) {
	localstore.Save(store, localstore.KeyRecords, st.Records)
	localstore.Save(store, localstore.KeyTasks, st.Tasks)
	localstore.Save(store, localstore.KeyBookmarks, st.Bookmarks)
	localstore.Save(store, localstore.KeyBookmarkCategories, st.BookmarkCategories)
	localstore.Save(store, localstore.KeyPatientTypes, st.PatientTypes)
	if st.User != nil {
		store.SaveValue(localstore.KeyUser, st.User)
	} else {
		store.Remove(localstore.KeyUser)
	}
	store.SaveValue(localstore.KeyTheme, st.Theme)
	store.SaveValue(localstore.KeySecurity, st.Security)
	store.SaveValue(localstore.KeyPreferences, st.Preferences)
}
