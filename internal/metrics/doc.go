// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package metrics holds process-wide Prometheus metrics that do not belong
// to a single domain package: HTTP requests, circuit breakers, store size,
// supervisor restarts and build info.
//
// Domain packages (journal, relay, coordinator, queue, lists, paging) define
// their own collectors in a local metrics.go. All of them register with the
// default registry through promauto, so Handler exposes everything.
//
// Snapshot reads the current values back through the registry, which the
// CLI uses to print a one-shot run summary.
package metrics
