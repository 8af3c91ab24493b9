// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package script

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scriptCompileFailures counts scripts replaced by a safe default.
var scriptCompileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pagelist_script_compile_failures_total",
	Help: "Total number of list scripts that failed to compile",
}, []string{"kind"})
