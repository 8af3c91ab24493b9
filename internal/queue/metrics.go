// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_queue_enqueued_total",
		Help: "Total number of items enqueued for list processing",
	})

	queueClaimConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_queue_claim_conflicts_total",
		Help: "Total number of claims lost to a concurrent transaction",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagelist_queue_depth",
		Help: "Number of items in the list-processing queue at the last count",
	})
)
