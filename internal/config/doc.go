// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package config loads Wardbook's configuration with koanf.

Precedence, lowest to highest:

 1. built-in defaults (defaultConfig)
 2. an optional YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/wardbook/config.yaml, /etc/wardbook/config.yml
 3. environment variables listed in envMappings

Only mapped environment variables are read. Durations accept Go syntax
("300ms", "24h"). CORS_ORIGINS is comma separated.

Example config.yaml:

	logging:
	  level: debug
	  format: console
	store:
	  path: /var/lib/wardbook/local
	remote:
	  backend: nats
	  embedded: true
	  store_dir: /var/lib/wardbook/nats
	session:
	  jwt_secret: change-me-to-at-least-32-characters
	backup:
	  enabled: true
	  dir: /var/lib/wardbook/backups
	  keep: 7

Validate runs after loading and rejects inconsistent settings, for example
REMOTE_BACKEND=nats without a NATS URL or embedded server, or a remote
backend without JWT_SECRET.
*/
package config
