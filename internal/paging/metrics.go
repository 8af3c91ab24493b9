// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package paging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var windowReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pagelist_paging_window_reads_total",
	Help: "Total number of ordered index windows read",
})
