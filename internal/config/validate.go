// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package config

import (
	"fmt"
	"strings"
)

const minJWTSecretLength = 32

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateBackup()
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error (got %q)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY is set")
	}
	if c.Store.MaxValueBytes <= 0 {
		return fmt.Errorf("STORE_MAX_VALUE_BYTES must be positive (got %d)", c.Store.MaxValueBytes)
	}
	if c.Store.GCRatio <= 0 || c.Store.GCRatio >= 1 {
		return fmt.Errorf("store.gc_ratio must be between 0 and 1 (got %v)", c.Store.GCRatio)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.ChunkSize < 1 || c.Sync.ChunkSize > 500 {
		return fmt.Errorf("SYNC_CHUNK_SIZE must be between 1 and 500 (got %d)", c.Sync.ChunkSize)
	}
	if c.Sync.Debounce <= 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must be positive (got %v)", c.Sync.Debounce)
	}
	if c.Sync.TombstoneCapacity < 1 {
		return fmt.Errorf("SYNC_TOMBSTONE_CAPACITY must be at least 1 (got %d)", c.Sync.TombstoneCapacity)
	}
	return nil
}

func (c *Config) validateRemote() error {
	r := &c.Remote
	switch r.Backend {
	case RemoteBackendNone, RemoteBackendMemory:
		return nil
	case RemoteBackendNATS:
	default:
		return fmt.Errorf("REMOTE_BACKEND must be none, memory or nats (got %q)", r.Backend)
	}

	if r.Embedded {
		if r.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED is set")
		}
	} else if r.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when REMOTE_BACKEND=nats and NATS_EMBEDDED is not set")
	}
	if r.Bucket == "" {
		return fmt.Errorf("NATS_BUCKET is required when REMOTE_BACKEND=nats")
	}
	if r.WriteRate < 0 {
		return fmt.Errorf("NATS_WRITE_RATE must not be negative (got %v)", r.WriteRate)
	}
	if r.Breaker.Enabled {
		if r.Breaker.FailureRatio <= 0 || r.Breaker.FailureRatio > 1 {
			return fmt.Errorf("remote.breaker.failure_ratio must be in (0, 1] (got %v)", r.Breaker.FailureRatio)
		}
		if r.Breaker.Timeout <= 0 {
			return fmt.Errorf("remote.breaker.timeout must be positive (got %v)", r.Breaker.Timeout)
		}
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case EventsBackendMemory:
		return nil
	case EventsBackendNATS:
		if c.Remote.Backend != RemoteBackendNATS {
			return fmt.Errorf("EVENTS_BACKEND=nats requires REMOTE_BACKEND=nats")
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_BACKEND must be memory or nats (got %q)", c.Events.Backend)
	}
}

func (c *Config) validateSession() error {
	secret := c.Session.JWTSecret
	if secret == "" {
		if c.Remote.Backend != RemoteBackendNone {
			return fmt.Errorf("JWT_SECRET is required when a remote backend is configured")
		}
		return nil
	}
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters (got %d)", minJWTSecretLength, len(secret))
	}
	if c.Session.TokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be positive (got %v)", c.Session.TokenTTL)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive (got %v)", c.Server.Timeout)
	}
	if c.Server.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 (got %d)", c.Server.RateLimitRequests)
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive (got %v)", c.Server.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_ENABLED is set")
	}
	if c.Backup.Keep < 1 {
		return fmt.Errorf("BACKUP_KEEP must be at least 1 (got %d)", c.Backup.Keep)
	}
	if c.Backup.Interval < 0 {
		return fmt.Errorf("BACKUP_INTERVAL must not be negative (got %v)", c.Backup.Interval)
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
