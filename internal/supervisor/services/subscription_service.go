// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/events"
	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
)

// Subscriber is the subscribing side of *sync.Engine.
type Subscriber interface {
	Subscribe(ctx context.Context, callback func([]models.Record)) (unsubscribe func())
}

// RecordApplier receives merged remote records, normally
// *persistence.Orchestrator.
type RecordApplier interface {
	ApplyRemote(records []models.Record)
}

// MergedPublisher announces merged records, normally *events.Bus.
type MergedPublisher interface {
	PublishMerged(ctx context.Context, ev events.MergedEvent) error
}

// SubscriptionService keeps a remote subscription open and feeds every
// merged record set into the app state and onto the event bus.
//
// A subscription is bound to the user signed in when it opened. Restart
// closes it and opens a new one; wire it to the session's sign-in and
// sign-out hooks.
type SubscriptionService struct {
	subscriber Subscriber
	applier    RecordApplier
	publisher  MergedPublisher
	restart    chan struct{}
	now        func() time.Time
	logger     zerolog.Logger
	name       string
}

// NewSubscriptionService creates the service. publisher may be nil.
func NewSubscriptionService(subscriber Subscriber, applier RecordApplier, publisher MergedPublisher) *SubscriptionService {
	return &SubscriptionService{
		subscriber: subscriber,
		applier:    applier,
		publisher:  publisher,
		restart:    make(chan struct{}, 1),
		now:        time.Now,
		logger:     logging.WithComponent("subscription"),
		name:       "remote-subscription",
	}
}

// Restart asks the service to resubscribe. It never blocks; requests made
// while one is pending collapse into one.
func (s *SubscriptionService) Restart() {
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

// Serve implements suture.Service.
func (s *SubscriptionService) Serve(ctx context.Context) error {
	for {
		subCtx := logging.ContextWithNewCorrelationID(ctx)
		unsubscribe := s.subscriber.Subscribe(subCtx, func(records []models.Record) {
			s.deliver(subCtx, records)
		})

		select {
		case <-ctx.Done():
			unsubscribe()
			return ctx.Err()
		case <-s.restart:
			unsubscribe()
			s.logger.Debug().Msg("resubscribing after session change")
		}
	}
}

func (s *SubscriptionService) deliver(ctx context.Context, records []models.Record) {
	s.applier.ApplyRemote(records)
	if s.publisher == nil {
		return
	}
	ev := events.MergedEvent{Records: records, At: s.now()}
	if err := s.publisher.PublishMerged(ctx, ev); err != nil && ctx.Err() == nil {
		logger := logging.FromContext(ctx, s.logger)
		logger.Warn().Err(err).Msg("failed to publish merged records")
	}
}

func (s *SubscriptionService) String() string {
	return s.name
}
