// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	recsync "github.com/tomtom215/wardbook/internal/sync"
)

// Ensure NATSStore implements DocumentStore
var _ recsync.DocumentStore = (*NATSStore)(nil)

// NATSConfig configures a NATSStore.
type NATSConfig struct {
	// Bucket is the JetStream KV bucket holding every user's documents.
	Bucket string

	// WriteRate caps puts and deletes per second. Zero disables the limit.
	WriteRate float64

	// WriteBurst is the limiter burst. Defaults to 50 when WriteRate is set.
	WriteBurst int

	// MaxValueBytes bounds a single document. Zero uses the server default.
	MaxValueBytes int32
}

// DefaultNATSConfig returns the production defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Bucket:     "wardbook",
		WriteRate:  200,
		WriteBurst: 50,
	}
}

// NATSStore is a DocumentStore backed by a JetStream key-value bucket.
type NATSStore struct {
	kv      jetstream.KeyValue
	limiter *rate.Limiter
	logger  zerolog.Logger
	closed  atomic.Bool
}

// Connect dials a NATS server with reconnects enabled.
func Connect(url, name string) (*natsgo.Conn, error) {
	nc, err := natsgo.Connect(url,
		natsgo.Name(name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NewNATSStore creates or updates the bucket and returns a store using it.
// The caller keeps ownership of nc.
func NewNATSStore(ctx context.Context, nc *natsgo.Conn, cfg NATSConfig) (*NATSStore, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultNATSConfig().Bucket
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:       cfg.Bucket,
		Description:  "Wardbook synchronized records",
		History:      1,
		MaxValueSize: cfg.MaxValueBytes,
		Storage:      jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create key-value bucket %s: %w", cfg.Bucket, err)
	}

	limit := rate.Inf
	burst := cfg.WriteBurst
	if cfg.WriteRate > 0 {
		limit = rate.Limit(cfg.WriteRate)
		if burst <= 0 {
			burst = 50
		}
	}

	return &NATSStore{
		kv:      kv,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logging.WithComponent("remote-nats").With().Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

func encodeToken(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func documentKey(uid string, coll recsync.Collection, id string) string {
	return "u." + encodeToken(uid) + "." + coll.String() + "." + encodeToken(id)
}

func collectionPattern(uid string, coll recsync.Collection) string {
	return "u." + encodeToken(uid) + "." + coll.String() + ".>"
}

func (s *NATSStore) put(ctx context.Context, key string, body json.RawMessage) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.kv.Put(ctx, key, body)
	return err
}

// Commit puts each document in order. JetStream KV has no multi-key
// transaction, so a failure can leave a prefix of docs written. Every put is
// a whole-document overwrite, so retrying the batch is safe.
func (s *NATSStore) Commit(ctx context.Context, uid string, coll recsync.Collection, docs []recsync.Document) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordRemoteOperation("commit", time.Since(start), err)
	}()

	for i, d := range docs {
		if err := s.put(ctx, documentKey(uid, coll, d.ID), d.Body); err != nil {
			return fmt.Errorf("put %d/%d: %w", i+1, len(docs), err)
		}
	}
	return nil
}

// Set writes one document.
func (s *NATSStore) Set(ctx context.Context, uid string, coll recsync.Collection, doc recsync.Document) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordRemoteOperation("set", time.Since(start), err)
	}()
	return s.put(ctx, documentKey(uid, coll, doc.ID), doc.Body)
}

// Delete removes one document.
func (s *NATSStore) Delete(ctx context.Context, uid string, coll recsync.Collection, id string) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordRemoteOperation("delete", time.Since(start), err)
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	err = s.kv.Delete(ctx, documentKey(uid, coll, id))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Watch streams full snapshots of one collection. The first snapshot is sent
// once the bucket has delivered its initial values.
func (s *NATSStore) Watch(ctx context.Context, uid string, coll recsync.Collection) (<-chan recsync.Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	watcher, err := s.kv.Watch(ctx, collectionPattern(uid, coll))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", coll, err)
	}

	out := make(chan recsync.Snapshot)
	log := s.logger.With().Str("collection", coll.String()).Logger()

	go func() {
		defer close(out)
		defer func() {
			if err := watcher.Stop(); err != nil {
				log.Debug().Err(err).Msg("watcher stop")
			}
		}()

		p := &partition{docs: make(map[string]json.RawMessage)}
		initialized := false

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil {
					initialized = true
				} else {
					switch entry.Operation() {
					case jetstream.KeyValuePut:
						p.put(entry.Key(), entry.Value())
					case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
						p.remove(entry.Key())
					}
				}
				if !initialized {
					continue
				}
				select {
				case out <- p.snapshot(coll):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close fails every later operation. Watches end with their contexts.
func (s *NATSStore) Close() error {
	s.closed.Store(true)
	return nil
}
