// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package journal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for journal operations
var (
	// journalAppendsTotal counts append attempts by result.
	journalAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagelist_journal_appends_total",
		Help: "Total number of journal append attempts",
	}, []string{"result"})

	// journalTombstonesTotal counts entries consumed by the drain.
	journalTombstonesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_journal_tombstones_total",
		Help: "Total number of journal entries tombstoned",
	})

	// journalMalformedTotal counts garbage lines consumed without relaying.
	journalMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_journal_malformed_total",
		Help: "Total number of malformed journal lines discarded",
	})

	// journalFilesRemovedTotal counts fully drained files unlinked.
	journalFilesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_journal_files_removed_total",
		Help: "Total number of fully drained journal files removed",
	})
)
