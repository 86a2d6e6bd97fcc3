// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
)

// ErrBusClosed is returned after Close.
var ErrBusClosed = errors.New("event bus is closed")

// Bus carries status and merge events between components.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	closer func() error
	logger zerolog.Logger
	closed atomic.Bool
}

// NewMemoryBus returns an in-process bus. Events published while nobody is
// subscribed are dropped.
func NewMemoryBus() *Bus {
	logger := logging.WithComponent("events")
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logging.NewWatermillAdapter(logger))

	return &Bus{
		pub:    ch,
		sub:    ch,
		closer: ch.Close,
		logger: logger,
	}
}

// NATSBusConfig configures NewNATSBus.
type NATSBusConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// DefaultNATSBusConfig returns defaults for url.
func DefaultNATSBusConfig(url string) NATSBusConfig {
	return NATSBusConfig{
		URL:           url,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  30 * time.Second,
	}
}

// NewNATSBus returns a bus over core NATS subjects, so every instance
// connected to the same server sees every event.
func NewNATSBus(cfg NATSBusConfig) (*Bus, error) {
	logger := logging.WithComponent("events")
	wmLogger := logging.NewWatermillAdapter(logger)

	natsOpts := []natsgo.Option{
		natsgo.Name("wardbook-events"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				wmLogger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		CloseTimeout:     cfg.CloseTimeout,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Bus{
		pub: pub,
		sub: sub,
		closer: func() error {
			return errors.Join(sub.Close(), pub.Close())
		},
		logger: logger,
	}, nil
}

func (b *Bus) publish(ctx context.Context, topic string, payload interface{}) (err error) {
	defer func() {
		metrics.RecordEventPublished(topic, err)
	}()
	if b.closed.Load() {
		return ErrBusClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}
	msg.SetContext(ctx)

	if err := b.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishStatus publishes on TopicStatus.
func (b *Bus) PublishStatus(ctx context.Context, ev StatusEvent) error {
	return b.publish(ctx, TopicStatus, ev)
}

// PublishMerged publishes on TopicMerged.
func (b *Bus) PublishMerged(ctx context.Context, ev MergedEvent) error {
	return b.publish(ctx, TopicMerged, ev)
}

// SubscribeStatus streams status events until ctx is done.
func (b *Bus) SubscribeStatus(ctx context.Context) (<-chan StatusEvent, error) {
	return subscribe[StatusEvent](ctx, b, TopicStatus)
}

// SubscribeMerged streams merge events until ctx is done.
func (b *Bus) SubscribeMerged(ctx context.Context) (<-chan MergedEvent, error) {
	return subscribe[MergedEvent](ctx, b, TopicMerged)
}

func subscribe[T any](ctx context.Context, b *Bus, topic string) (<-chan T, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan T)
	go func() {
		defer close(out)
		for msg := range messages {
			var ev T
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the bus. Open subscriptions end.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.closer()
}
