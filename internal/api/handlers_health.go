// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package api

import (
	"net/http"
	"time"
)

// Health reports store availability.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := s.store.Health(); err != nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "store unavailable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ok", "site": s.site.Root}, started)
}

// Ping wakes the scheduler.
func (s *Server) Ping(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if s.waker == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, ErrNoWaker.Error(), nil)
		return
	}
	if err := s.waker.Wake("http"); err != nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "wakeup failed", err)
		return
	}
	respondData(w, http.StatusAccepted, map[string]string{"status": "queued"}, started)
}
