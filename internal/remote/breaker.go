// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package remote

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// Ensure BreakerStore implements DocumentStore
var _ recsync.DocumentStore = (*BreakerStore)(nil)

// BreakerConfig configures a BreakerStore.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig returns the production settings:
//   - max 3 requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - opens after a 60% failure rate with at least 10 requests
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "remote-store",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerStore routes writes through a circuit breaker. Watch is passed
// through unchanged.
type BreakerStore struct {
	next recsync.DocumentStore
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewBreakerStore wraps next.
func NewBreakerStore(next recsync.DocumentStore, cfg BreakerConfig) *BreakerStore {
	name := cfg.Name
	if name == "" {
		name = DefaultBreakerConfig().Name
	}
	log := logging.WithComponent("remote-breaker")

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				log.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening remote store circuit")
			}
			return shouldTrip
		},

		// A cancelled push is the caller's choice, not a remote failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			log.Info().Str("from", fromStr).Str("to", toStr).Msg("circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerStore{next: next, cb: cb, name: name}
}

func (b *BreakerStore) execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			counts := b.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		}
		return err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return nil
}

// Commit commits through the breaker.
func (b *BreakerStore) Commit(ctx context.Context, uid string, coll recsync.Collection, docs []recsync.Document) error {
	return b.execute(func() error {
		return b.next.Commit(ctx, uid, coll, docs)
	})
}

// Set writes through the breaker.
func (b *BreakerStore) Set(ctx context.Context, uid string, coll recsync.Collection, doc recsync.Document) error {
	return b.execute(func() error {
		return b.next.Set(ctx, uid, coll, doc)
	})
}

// Delete deletes through the breaker.
func (b *BreakerStore) Delete(ctx context.Context, uid string, coll recsync.Collection, id string) error {
	return b.execute(func() error {
		return b.next.Delete(ctx, uid, coll, id)
	})
}

// Watch is not guarded; a failing watch already ends its channel.
func (b *BreakerStore) Watch(ctx context.Context, uid string, coll recsync.Collection) (<-chan recsync.Snapshot, error) {
	return b.next.Watch(ctx, uid, coll)
}

// State returns the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// StateString returns the breaker state as closed, half-open or open.
func (b *BreakerStore) StateString() string {
	return stateToString(b.cb.State())
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
