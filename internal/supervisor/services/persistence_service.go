// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package services

import (
	"context"
	"fmt"
)

// StartStopper is the lifecycle of *persistence.Orchestrator.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// PersistenceService adapts the orchestrator's Start/Stop to suture:
// Start, wait for cancellation, then Stop. Stop performs the final flush, so
// pending edits are saved and pushed before the service returns.
type PersistenceService struct {
	orchestrator StartStopper
	name         string
}

// NewPersistenceService wraps orchestrator.
func NewPersistenceService(orchestrator StartStopper) *PersistenceService {
	return &PersistenceService{
		orchestrator: orchestrator,
		name:         "persistence",
	}
}

// Serve implements suture.Service.
func (s *PersistenceService) Serve(ctx context.Context) error {
	if err := s.orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("persistence start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.orchestrator.Stop(); err != nil {
		return fmt.Errorf("persistence stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *PersistenceService) String() string {
	return s.name
}
