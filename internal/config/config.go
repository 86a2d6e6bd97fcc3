// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package config

import "time"

// Config holds all application configuration
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Store   StoreConfig   `koanf:"store"`
	Sync    SyncConfig    `koanf:"sync"`
	Remote  RemoteConfig  `koanf:"remote"`
	Events  EventsConfig  `koanf:"events"`
	Session SessionConfig `koanf:"session"`
	Server  ServerConfig  `koanf:"server"`
	Backup  BackupConfig  `koanf:"backup"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json, console
	Caller bool   `koanf:"caller"`
}

// StoreConfig holds local store settings
type StoreConfig struct {
	Path          string        `koanf:"path"`
	InMemory      bool          `koanf:"in_memory"`
	MaxValueBytes int           `koanf:"max_value_bytes"` // per-key quota
	GCInterval    time.Duration `koanf:"gc_interval"`
	GCRatio       float64       `koanf:"gc_ratio"`
}

// SyncConfig holds sync engine and orchestrator settings
type SyncConfig struct {
	ChunkSize         int           `koanf:"chunk_size"`
	Debounce          time.Duration `koanf:"debounce"`
	TombstoneCapacity int           `koanf:"tombstone_capacity"`
}

// Remote backends
const (
	RemoteBackendNone   = "none"
	RemoteBackendMemory = "memory"
	RemoteBackendNATS   = "nats"
)

// RemoteConfig selects and configures the remote document store
type RemoteConfig struct {
	Backend string `koanf:"backend"` // none, memory, nats

	NATSURL       string `koanf:"nats_url"`
	Embedded      bool   `koanf:"embedded"` // run nats-server in process
	StoreDir      string `koanf:"store_dir"`
	Bucket        string `koanf:"bucket"`
	MaxMemory     int64  `koanf:"max_memory"`
	MaxStore      int64  `koanf:"max_store"`
	MaxValueBytes int32  `koanf:"max_value_bytes"`

	WriteRate  float64 `koanf:"write_rate"` // puts per second, 0 = unlimited
	WriteBurst int     `koanf:"write_burst"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig holds circuit breaker settings for remote writes
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// Event bus backends
const (
	EventsBackendMemory = "memory"
	EventsBackendNATS   = "nats"
)

// EventsConfig selects the event bus transport
type EventsConfig struct {
	Backend string `koanf:"backend"` // memory, nats
}

// SessionConfig holds session token settings
type SessionConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Token     string        `koanf:"token"` // optional token to sign in with at start-up
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// BackupConfig holds scheduled backup archive settings
type BackupConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Dir      string        `koanf:"dir"`
	Keep     int           `koanf:"keep"`
	Interval time.Duration `koanf:"interval"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Path:          "/data/wardbook/local",
			MaxValueBytes: 5 << 20,
			GCInterval:    10 * time.Minute,
			GCRatio:       0.5,
		},
		Sync: SyncConfig{
			ChunkSize:         400,
			Debounce:          300 * time.Millisecond,
			TombstoneCapacity: 4096,
		},
		Remote: RemoteConfig{
			Backend:    RemoteBackendNone,
			NATSURL:    "nats://127.0.0.1:4222",
			StoreDir:   "/data/wardbook/nats",
			Bucket:     "wardbook",
			MaxMemory:  256 << 20,
			MaxStore:   4 << 30,
			WriteRate:  200,
			WriteBurst: 50,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Events: EventsConfig{
			Backend: EventsBackendMemory,
		},
		Session: SessionConfig{
			TokenTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8417,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"http://localhost:5173"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Backup: BackupConfig{
			Enabled:  false,
			Dir:      "/data/wardbook/backups",
			Keep:     14,
			Interval: 24 * time.Hour,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence, and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
