// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package localstore

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
)

// DefaultMaxValueBytes mirrors the per-origin budget of browser storage.
const DefaultMaxValueBytes = 5 << 20

// Store reads and writes JSON slices on top of a KV.
type Store struct {
	kv            KV
	maxValueBytes int
	logger        zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxValueBytes caps the serialized size of a single key. Zero or less
// disables the cap.
func WithMaxValueBytes(n int) Option {
	return func(s *Store) {
		s.maxValueBytes = n
	}
}

// WithLogger replaces the store's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New wraps kv.
func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:            kv,
		maxValueBytes: DefaultMaxValueBytes,
		logger:        logging.WithComponent("localstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// read returns the stored bytes, or nil for a missing key or backend error.
func (s *Store) read(key Key) []byte {
	data, err := s.kv.Get(string(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("local read failed, treating as empty")
		}
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	return data
}

// LoadRaw returns one raw element per array entry stored under key. A
// missing key, a non-array value or corrupt JSON all give an empty slice.
func (s *Store) LoadRaw(key Key) []json.RawMessage {
	data := s.read(key)
	if data == nil {
		return []json.RawMessage{}
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("corrupt local value, treating as empty")
		return []json.RawMessage{}
	}
	if raws == nil {
		return []json.RawMessage{}
	}
	return raws
}

// LoadValueRaw returns the raw JSON stored under key.
func (s *Store) LoadValueRaw(key Key) (json.RawMessage, bool) {
	data := s.read(key)
	if data == nil {
		return nil, false
	}
	if !json.Valid(data) {
		s.logger.Warn().Str("key", key.String()).Msg("corrupt local value, treating as empty")
		return nil, false
	}
	return json.RawMessage(data), true
}

// Load decodes the array stored under key. It never returns nil.
func Load[T any](s *Store, key Key) []T {
	data := s.read(key)
	if data == nil {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("corrupt local value, treating as empty")
		return []T{}
	}
	if out == nil {
		return []T{}
	}
	return out
}

// LoadValue decodes the object stored under key. The bool is false when the
// key is missing or corrupt.
func LoadValue[T any](s *Store, key Key) (T, bool) {
	var zero T
	data := s.read(key)
	if data == nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("corrupt local value, treating as empty")
		return zero, false
	}
	return out, true
}

// Save serializes items under key. A nil slice is stored as an empty array.
func Save[T any](s *Store, key Key, items []T) bool {
	if items == nil {
		items = []T{}
	}
	return s.SaveValue(key, items)
}

// SaveValue serializes v under key and reports whether it was written.
func (s *Store) SaveValue(key Key, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.saveFailed(key, "serialize", err)
		return false
	}
	if err := s.write(key, data); err != nil {
		reason := "backend"
		if errors.Is(err, ErrQuotaExceeded) {
			reason = "quota"
		}
		s.saveFailed(key, reason, err)
		return false
	}
	return true
}

func (s *Store) write(key Key, data []byte) error {
	if s.maxValueBytes > 0 && len(data) > s.maxValueBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrQuotaExceeded, key, len(data), s.maxValueBytes)
	}
	if err := s.kv.Set(string(key), data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) saveFailed(key Key, reason string, err error) {
	metrics.RecordLocalSaveFailure(key.String(), reason)
	s.logger.Error().Err(err).Str("key", key.String()).Str("reason", reason).Msg("local save failed")
}

// Remove deletes key and reports success.
func (s *Store) Remove(key Key) bool {
	if err := s.kv.Remove(string(key)); err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("local remove failed")
		return false
	}
	return true
}
