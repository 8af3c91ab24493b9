// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for list processing
var (
	// reconciliationsTotal counts (list, page) reconciliations by outcome.
	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagelist_reconciliations_total",
		Help: "Total number of list/page reconciliations",
	}, []string{"result"})

	// listItems is the member count of each list after its last change.
	listItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pagelist_list_items",
		Help: "Number of items in each list",
	}, []string{"list"})

	// schedulerRunsTotal counts scheduler passes by how they ended.
	schedulerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagelist_scheduler_runs_total",
		Help: "Total number of scheduler runs",
	}, []string{"outcome"})

	// schedulerRunDuration measures scheduler run latency.
	schedulerRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagelist_scheduler_run_duration_seconds",
		Help:    "Scheduler run duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})

	// schedulerItemsTotal counts queue items fully processed.
	schedulerItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_scheduler_items_total",
		Help: "Total number of queue items processed by the scheduler",
	})
)
