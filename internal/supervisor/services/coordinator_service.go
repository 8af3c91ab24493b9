// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package services

import (
	"context"
	"fmt"
	"time"
)

// CoordinatorRunner is the coordinator lifecycle. Satisfied by
// *coordinator.Coordinator.
type CoordinatorRunner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// CoordinatorService runs the work coordinator under supervision.
type CoordinatorService struct {
	coordinator     CoordinatorRunner
	shutdownTimeout time.Duration
	name            string
}

// NewCoordinatorService creates the service. shutdownTimeout bounds the
// SHUTTING_DOWN broadcast and defaults to 10s.
func NewCoordinatorService(c CoordinatorRunner, shutdownTimeout time.Duration) *CoordinatorService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &CoordinatorService{coordinator: c, shutdownTimeout: shutdownTimeout, name: "work-coordinator"}
}

// Serve implements suture.Service.
func (s *CoordinatorService) Serve(ctx context.Context) error {
	if err := s.coordinator.Start(); err != nil {
		return fmt.Errorf("coordinator start failed: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.coordinator.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("coordinator shutdown failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (s *CoordinatorService) String() string {
	return s.name
}
