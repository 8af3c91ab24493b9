// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package services

import (
	"context"
	"time"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/metrics"
)

// GCStore is satisfied by *store.Store.
type GCStore interface {
	RunGC() error
	Size() (lsm, vlog int64)
}

// StoreGCService runs value log GC periodically.
type StoreGCService struct {
	store    GCStore
	interval time.Duration
	name     string
}

// NewStoreGCService creates the service. A non-positive interval disables
// GC; sizes are still reported once.
func NewStoreGCService(st GCStore, interval time.Duration) *StoreGCService {
	return &StoreGCService{store: st, interval: interval, name: "store-gc"}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	metrics.UpdateStoreSize(s.store.Size())
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.collect()
		}
	}
}

func (s *StoreGCService) collect() {
	started := time.Now()
	if err := s.store.RunGC(); err != nil {
		logging.Warn().Err(err).Msg("Store GC failed")
		return
	}
	metrics.StoreGCRuns.Inc()
	lsm, vlog := s.store.Size()
	metrics.UpdateStoreSize(lsm, vlog)
	logging.Debug().Dur("took", time.Since(started)).Int64("lsm_bytes", lsm).Int64("vlog_bytes", vlog).
		Msg("Store GC finished")
}

// String implements fmt.Stringer for suture logs.
func (s *StoreGCService) String() string {
	return s.name
}
